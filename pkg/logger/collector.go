package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sink receives rendered error digests. Notifiers satisfy it.
type Sink interface {
	Notify(ctx context.Context, subject, body string) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force an early flush
	Subject        string
	Sink           Sink
	SendTimeout    time.Duration
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates error lines and ships them as one digest.
type LogCollector struct {
	config *CollectionConfig
	logMap map[string]*AggregatedLogEntry
	mutex  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 10 * time.Minute
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 50
	}
	if config.Subject == "" {
		config.Subject = "Error digest"
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		config: config,
		logMap: make(map[string]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.periodicFlush()

	return c
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := d.generateKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, ok := d.logMap[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.logMap[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(d.logMap) >= d.config.CountThreshold {
		d.flushLocked(true)
	}
}

func (d *LogCollector) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	b, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (d *LogCollector) periodicFlush() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mutex.Lock()
			d.flushLocked(true)
			d.mutex.Unlock()
		case <-d.ctx.Done():
			d.mutex.Lock()
			d.flushLocked(false)
			d.mutex.Unlock()
			return
		}
	}
}

// flushLocked renders and sends the pending entries. Caller holds the mutex.
func (d *LogCollector) flushLocked(async bool) {
	if len(d.logMap) == 0 || d.config.Sink == nil {
		return
	}

	entries := make([]AggregatedLogEntry, 0, len(d.logMap))
	for _, e := range d.logMap {
		entries = append(entries, *e)
	}
	d.logMap = make(map[string]*AggregatedLogEntry)

	subject := fmt.Sprintf("%s (%d distinct)", d.config.Subject, len(entries))
	body := RenderDigest(entries)
	send := func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.SendTimeout)
		defer cancel()
		if err := d.config.Sink.Notify(ctx, subject, body); err != nil {
			fmt.Printf("failed to send error digest: %v\n", err)
		}
	}
	if async {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			send()
		}()
		return
	}
	send()
}

// RenderDigest formats entries most frequent first.
func RenderDigest(entries []AggregatedLogEntry) string {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].FirstSeen.Before(entries[j].FirstSeen)
	})

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] x%d %s (%s)\n", strings.ToUpper(e.Level), e.Count, e.Message, e.Caller)
		fmt.Fprintf(&b, "  first=%s last=%s\n", e.FirstSeen.UTC().Format(time.RFC3339), e.LastSeen.UTC().Format(time.RFC3339))
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s=%v\n", k, e.Fields[k])
		}
	}
	return b.String()
}

// Close flushes what is pending and waits for in-flight sends.
func (d *LogCollector) Close() {
	d.cancel()
	d.wg.Wait()
}
