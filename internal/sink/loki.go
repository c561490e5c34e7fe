package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/util"
)

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
	now    func() time.Time
}

func NewLoki(cfg config.LokiConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	if cfg.Job == "" {
		cfg.Job = "firstblood-bot"
	}
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(to), now: time.Now}
}

func (l *lokiSink) Name() string { return "loki" }

func (l *lokiSink) Push(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	body, err := json.Marshal(l.payload(events))
	if err != nil {
		return fmt.Errorf("loki: encode: %w", err)
	}
	url := strings.TrimRight(l.cfg.URL, "/") + "/loki/api/v1/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("loki push failed http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// payload groups events into one stream per category. Events whose time does
// not parse are stamped with the push time.
func (l *lokiSink) payload(events []model.Event) lokiPush {
	byCat := map[string]int{}
	var p lokiPush
	for _, e := range events {
		ts, ok := e.Timestamp()
		if !ok {
			ts = l.now()
		}
		line, _ := json.Marshal(e)

		i, seen := byCat[e.Category]
		if !seen {
			i = len(p.Streams)
			byCat[e.Category] = i
			p.Streams = append(p.Streams, lokiStream{Stream: map[string]string{
				"job":      l.cfg.Job,
				"source":   "firstblood",
				"category": e.Category,
			}})
		}
		// loki wants ns since epoch as a decimal string
		p.Streams[i].Values = append(p.Streams[i].Values, [2]string{strconv.FormatInt(ts.UnixNano(), 10), string(line)})
	}
	return p
}
