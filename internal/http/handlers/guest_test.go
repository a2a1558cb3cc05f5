package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fotopro/internal/enhanceflow"
	"fotopro/internal/guest"
)

// memCommands is the minimal Redis surface the guest gallery needs, backed
// by an in-memory list.
type memCommands struct {
	lists map[string][]string
}

func newMemCommands() *memCommands {
	return &memCommands{lists: map[string][]string{}}
}

func (m *memCommands) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case []byte:
			s = string(val)
		}
		m.lists[key] = append([]string{s}, m.lists[key]...)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(m.lists[key])))
	return cmd
}

func (m *memCommands) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	if l, ok := m.lists[key]; ok && stop+1 < int64(len(l)) {
		m.lists[key] = l[start : stop+1]
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *memCommands) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(append([]string(nil), m.lists[key]...))
	return cmd
}

func (m *memCommands) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.lists, key)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (m *memCommands) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func guestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 30), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func guestMultipart(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="photo"; filename="photo.jpg"`}
	hdr["Content-Type"] = []string{"image/jpeg"}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(guestJPEG(t)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func pushedEntries(t *testing.T, rdb *memCommands, sessionID string) []guest.Entry {
	t.Helper()
	raw := rdb.lists["guest:gallery:"+sessionID]
	entries := make([]guest.Entry, 0, len(raw))
	for _, item := range raw {
		var e guest.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			t.Fatalf("decode entry: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestGuestEnhanceThumbnailsRemoteResult(t *testing.T) {
	enhanced := guestJPEG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(enhanced)
	}))
	defer srv.Close()

	rdb := newMemCommands()
	app := &App{
		Logger: zerolog.Nop(),
		Guests: guest.NewStore(rdb),
		Policy: enhanceflow.Policy{
			Real:    &scriptedEnhancer{result: srv.URL + "/enhanced.jpg"},
			Mock:    &scriptedEnhancer{},
			UseReal: true,
		},
	}

	body, contentType := guestMultipart(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/guest/enhancements", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Session", "sess-1")
	rec := httptest.NewRecorder()
	app.GuestEnhance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	entries := pushedEntries(t, rdb, "sess-1")
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].EnhancedThumb, "data:image/jpeg;base64,") {
		t.Fatalf("enhanced thumb is not a thumbnail data URI: %.60s", entries[0].EnhancedThumb)
	}
	if entries[0].EnhancedThumb == srv.URL+"/enhanced.jpg" {
		t.Fatal("raw remote reference stored in the gallery")
	}
}

func TestGuestEnhanceProseResultReusesOriginalThumb(t *testing.T) {
	rdb := newMemCommands()
	app := &App{
		Logger: zerolog.Nop(),
		Guests: guest.NewStore(rdb),
		Policy: enhanceflow.Policy{
			Real:    &scriptedEnhancer{result: "a textual description, not an image"},
			Mock:    &scriptedEnhancer{},
			UseReal: true,
		},
	}

	body, contentType := guestMultipart(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/guest/enhancements", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Session", "sess-1")
	rec := httptest.NewRecorder()
	app.GuestEnhance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	entries := pushedEntries(t, rdb, "sess-1")
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].EnhancedThumb != entries[0].OriginalThumb {
		t.Fatal("unusable result should reuse the original thumbnail")
	}
}

func TestGuestEnhanceRequiresSessionHeader(t *testing.T) {
	app := &App{
		Logger: zerolog.Nop(),
		Guests: guest.NewStore(newMemCommands()),
		Policy: enhanceflow.Policy{Mock: &scriptedEnhancer{}},
	}

	body, contentType := guestMultipart(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/guest/enhancements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.GuestEnhance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGuestEnhanceDisabledWithoutRedis(t *testing.T) {
	app := &App{
		Logger: zerolog.Nop(),
		Guests: guest.NewStore(nil),
		Policy: enhanceflow.Policy{Mock: &scriptedEnhancer{}},
	}

	body, contentType := guestMultipart(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/guest/enhancements", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Session", "sess-1")
	rec := httptest.NewRecorder()
	app.GuestEnhance(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
