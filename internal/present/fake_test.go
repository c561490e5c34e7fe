package present

import (
	"context"
	"errors"
	"fmt"
)

type fakeMessage struct {
	content string
	embed   *Embed
}

// fakeChat is an in-memory channel. failX make the matching call fail.
type fakeChat struct {
	next     int
	live     map[string]fakeMessage
	deleted  []string
	edits    int
	failSend bool
	failEdit bool
	failDel  bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{live: map[string]fakeMessage{}}
}

func (f *fakeChat) id() string {
	f.next++
	return fmt.Sprintf("m%d", f.next)
}

func (f *fakeChat) Send(_ context.Context, content string) (string, error) {
	if f.failSend {
		return "", errors.New("send refused")
	}
	id := f.id()
	f.live[id] = fakeMessage{content: content}
	return id, nil
}

func (f *fakeChat) SendEmbed(_ context.Context, e Embed) (string, error) {
	if f.failSend {
		return "", errors.New("send refused")
	}
	id := f.id()
	f.live[id] = fakeMessage{embed: &e}
	return id, nil
}

func (f *fakeChat) EditEmbed(_ context.Context, id string, e Embed) error {
	if f.failEdit {
		return errors.New("edit refused")
	}
	if _, ok := f.live[id]; !ok {
		return errors.New("unknown message")
	}
	f.edits++
	f.live[id] = fakeMessage{embed: &e}
	return nil
}

func (f *fakeChat) Delete(_ context.Context, id string) error {
	if f.failDel {
		return errors.New("delete refused")
	}
	if _, ok := f.live[id]; !ok {
		return errors.New("unknown message")
	}
	delete(f.live, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeChat) liveTexts() int {
	n := 0
	for _, m := range f.live {
		if m.embed == nil {
			n++
		}
	}
	return n
}
