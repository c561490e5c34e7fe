package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/util"
)

const rpcPath = "/rest/v1/rpc/get_notifications"

// notif_type spellings the scoreboard has used for first blood.
var firstBloodTypes = map[string]struct{}{
	"first_blood": {},
	"firstblood":  {},
	"first-blood": {},
	"first":       {},
}

type supabaseSource struct {
	cfg    config.BackendConfig
	client *http.Client
}

func NewSupabaseSource(cfg config.BackendConfig) *supabaseSource {
	to := cfg.Timeout
	if to == 0 {
		to = 30 * time.Second
	}
	return &supabaseSource{cfg: cfg, client: util.NewHTTPClient(to)}
}

func (s *supabaseSource) Name() string { return "supabase" }

func (s *supabaseSource) Fetch(ctx context.Context) ([]model.Event, error) {
	limit := s.cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	body, _ := json.Marshal(map[string]int{"p_limit": limit, "p_offset": 0})

	url := strings.TrimRight(s.cfg.URL, "/") + rpcPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if ua := s.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &FetchError{Source: s.Name(), Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(b)))}
	}

	var records []map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, &FetchError{Source: s.Name(), Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return Normalize(records, s.cfg.IDScheme), nil
}

// Normalize keeps first-blood records with a usable timestamp and maps them to
// events. Anything else is dropped without error.
func Normalize(records []map[string]any, idScheme string) []model.Event {
	out := make([]model.Event, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		typ := strings.ToLower(pickStr(rec, "notif_type"))
		if _, ok := firstBloodTypes[typ]; !ok {
			continue
		}
		ts := pickStr(rec, "notif_created_at", "created_at")
		if ts == "" {
			continue
		}
		if _, err := model.ParseTime(ts); err != nil {
			continue
		}

		user := pickStr(rec, "notif_username")
		challenge := pickStr(rec, "notif_challenge_title")

		var id string
		if idScheme == "native" {
			id = pickAny(rec, "notif_id", "id")
			if id == "" {
				id = "notif:" + ts
			}
		} else {
			id = model.DigestID(user, challenge, ts)
		}

		out = append(out, model.Event{
			ID:        id,
			User:      orUnknown(user, model.Unknown),
			Challenge: orUnknown(challenge, model.Unknown),
			Category:  orUnknown(pickStr(rec, "notif_category"), model.Unknown),
			Time:      ts,
		})
	}
	return out
}
