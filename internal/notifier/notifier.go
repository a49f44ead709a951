// Package notifier pushes alarm and countdown alerts to external services
// through shoutrrr.
package notifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/timer"
)

// ErrNoURLs is returned by SendTest when nothing is configured.
var ErrNoURLs = errors.New("no notification URLs configured")

// SendFunc delivers one message to one shoutrrr URL.
type SendFunc func(rawURL, message string) error

// TriggerEvents are the events that produce a notification.
var TriggerEvents = []domain.EventType{domain.AlarmTriggered, domain.TimerFinished}

// Notifier handles sending notifications based on events
type Notifier struct {
	eb       eventbus.Publisher
	urls     []string
	throttle time.Duration
	clk      clock.Clock
	send     SendFunc

	mu       sync.Mutex
	lastSent map[string]time.Time // per-URL throttling
	stopped  bool
	wg       sync.WaitGroup // in-flight sends
}

// NewNotifier creates a notifier for the given shoutrrr URLs. Blank URLs
// are ignored.
func NewNotifier(eb eventbus.Publisher, urls []string, throttle time.Duration, clocks ...clock.Clock) *Notifier {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	return &Notifier{
		eb:       eb,
		urls:     clean,
		throttle: throttle,
		clk:      clock.OrReal(clocks...),
		send:     shoutrrr.Send,
		lastSent: make(map[string]time.Time),
	}
}

// SetSender replaces shoutrrr.Send. Must be called before Start.
func (n *Notifier) SetSender(f SendFunc) {
	n.send = f
}

// Enabled reports whether any URL is configured.
func (n *Notifier) Enabled() bool {
	return len(n.urls) > 0
}

// Providers returns the scheme of each configured URL, e.g. "ntfy".
func (n *Notifier) Providers() []string {
	out := make([]string, 0, len(n.urls))
	for _, u := range n.urls {
		out = append(out, provider(u))
	}
	return out
}

// Start begins listening for events
func (n *Notifier) Start() {
	if !n.Enabled() {
		logger.Infof("Notifier disabled: no URLs configured")
		return
	}
	for _, et := range TriggerEvents {
		n.eb.Subscribe(et, n.handleEvent)
	}
	logger.Infof("Notifier started with %d URL(s): %s", len(n.urls), strings.Join(n.Providers(), ", "))
}

// Stop drops further events and waits for in-flight sends.
func (n *Notifier) Stop() {
	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()
	n.wg.Wait()
}

// Wait blocks until in-flight sends finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) handleEvent(ev domain.Event) {
	message, ok := FormatMessage(ev)
	if !ok {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}

	now := n.clk.Now()
	for _, u := range n.urls {
		if last, seen := n.lastSent[u]; seen && now.Sub(last) < n.throttle {
			logger.Debugf("Throttled %s notification for %s", provider(u), ev.EventType)
			continue
		}
		// reserve the slot now so a burst cannot slip past the throttle
		n.lastSent[u] = now

		n.wg.Add(1)
		go func(u string) {
			defer n.wg.Done()
			n.deliver(u, ev, message)
		}(u)
	}
}

func (n *Notifier) deliver(rawURL string, trigger domain.Event, message string) {
	err := n.send(rawURL, message)

	data := map[string]interface{}{
		"provider":      provider(rawURL),
		"trigger_event": string(trigger.EventType),
	}
	eventType := domain.NotificationSent
	if err != nil {
		logger.Errorf("Failed to send %s notification: %v", provider(rawURL), err)
		eventType = domain.NotificationFailed
		data["error"] = redactError(err, rawURL)
	} else {
		logger.Debugf("Sent %s notification for %s", provider(rawURL), trigger.EventType)
	}

	ev := domain.NewEvent(eventType, domain.AggregateNotifier, trigger.AggregateID, data, n.clk.Now())
	if pubErr := n.eb.Publish(ev); pubErr != nil {
		logger.Debugf("Failed to publish %s event: %v", eventType, pubErr)
	}
}

// SendTest sends a test message to every URL synchronously, bypassing the
// throttle. Returns the joined errors.
func (n *Notifier) SendTest() error {
	if !n.Enabled() {
		return ErrNoURLs
	}
	var errs []error
	for _, u := range n.urls {
		if err := n.send(u, "Neonclock test notification"); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s", provider(u), redactError(err, u)))
		}
	}
	return errors.Join(errs...)
}

// FormatMessage renders the notification text for a trigger event.
func FormatMessage(ev domain.Event) (string, bool) {
	switch ev.EventType {
	case domain.AlarmTriggered:
		d, ok := ev.ParseAlarmEventData()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Alarm: %s (%s)", d.Label, d.Time), true
	case domain.TimerFinished:
		d, ok := ev.ParseTimerEventData()
		if !ok || d.InitialDurationMs <= 0 {
			return "Countdown finished", true
		}
		return fmt.Sprintf("Countdown finished (%s)", timer.FormatClock(time.Duration(d.InitialDurationMs)*time.Millisecond)), true
	default:
		return "", false
	}
}

// provider returns the URL scheme, which names the shoutrrr service.
func provider(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		return u.Scheme
	}
	return "unknown"
}

// redactError strips the URL, which carries tokens, from err's text.
func redactError(err error, rawURL string) string {
	return strings.ReplaceAll(err.Error(), rawURL, provider(rawURL)+"://***")
}
