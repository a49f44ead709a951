package api

import (
	"archive/zip"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/config"
	"github.com/mescon/neonclock/internal/logger"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

func (s *RESTServer) handleDownloadLogs(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=neonclock_logs.zip")
	c.Header("Content-Type", "application/zip")

	zipWriter := zip.NewWriter(c.Writer)
	defer zipWriter.Close()

	logDir := config.Get().LogDir
	err := filepath.Walk(logDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		// .txt opens without an associated program on Windows
		baseName := filepath.Base(path)
		if strings.HasSuffix(baseName, ".log") {
			baseName = strings.TrimSuffix(baseName, ".log") + ".txt"
		}
		header.Name = baseName
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})

	if err != nil && !os.IsNotExist(err) {
		logger.Errorf("Failed to zip logs: %v", err)
	}
}

// handleRecentLogs returns the newest in-memory log entries, oldest first.
func (s *RESTServer) handleRecentLogs(c *gin.Context) {
	c.JSON(http.StatusOK, logger.Recent(parseLimit(c, defaultLogLimit, maxLogLimit)))
}

// parseLimit reads ?limit=, falling back to def on missing or invalid values.
func parseLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
