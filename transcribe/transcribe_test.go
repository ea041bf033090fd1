package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	available bool
	text      string
	err       error
	calls     int
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) IsAvailable() bool { return f.available }

func (f *fakeProvider) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainEmptyAudio(t *testing.T) {
	chain := NewChain([]Provider{&fakeProvider{name: "a", available: true, text: "hi"}})
	assert.Equal(t, "", chain.Transcribe(context.Background(), nil, "audio.wav"))
}

func TestChainFirstAvailableWins(t *testing.T) {
	unavailable := &fakeProvider{name: "local", available: false}
	primary := &fakeProvider{name: "hosted", available: true, text: "meeting transcript"}
	backup := &fakeProvider{name: "backup", available: true, text: "other"}

	chain := NewChain([]Provider{unavailable, primary, backup})
	got := chain.Transcribe(context.Background(), []byte("audio"), "m.wav")

	assert.Equal(t, "meeting transcript", got)
	assert.Equal(t, 0, unavailable.calls)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls)
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeProvider{name: "flaky", available: true, err: errors.New("boom")}
	backup := &fakeProvider{name: "backup", available: true, text: "recovered"}

	chain := NewChain([]Provider{failing, backup})
	got := chain.Transcribe(context.Background(), []byte("audio"), "m.wav")

	assert.Equal(t, "recovered", got)
}

func TestChainNoBackendsPlaceholder(t *testing.T) {
	chain := NewChain([]Provider{&fakeProvider{name: "off", available: false}})
	got := chain.Transcribe(context.Background(), []byte("12345"), "m.wav")
	assert.Equal(t, "Transcription unavailable: no transcription backend configured. Received 5 bytes.", got)
}

func TestChainAllFailPlaceholder(t *testing.T) {
	chain := NewChain([]Provider{
		&fakeProvider{name: "a", available: true, err: errors.New("x")},
		&fakeProvider{name: "b", available: true, err: errors.New("y")},
	})
	got := chain.Transcribe(context.Background(), []byte("123"), "m.wav")
	assert.Equal(t, "Transcription failed: all configured backends errored. Received 3 bytes.", got)
}

func TestChainEmptyTranscript(t *testing.T) {
	chain := NewChain([]Provider{&fakeProvider{name: "a", available: true, text: "  "}})
	got := chain.Transcribe(context.Background(), []byte("audio"), "m.wav")
	assert.Equal(t, "No speech detected in audio", got)
}

func TestWhisperProviderAvailability(t *testing.T) {
	assert.False(t, NewWhisperProvider("", "").IsAvailable())
	assert.True(t, NewWhisperProvider("http://localhost:9001/v1", "").IsAvailable())
}

func TestWhisperProviderTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "standup.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "we discussed the sprint goals"}`))
	}))
	defer srv.Close()

	p := NewWhisperProvider(srv.URL+"/v1", "secret", WithWhisperHTTPClient(srv.Client()))
	text, err := p.Transcribe(context.Background(), []byte("fake-audio"), "standup.wav")
	require.NoError(t, err)
	assert.Equal(t, "we discussed the sprint goals", text)
}

func TestWhisperProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewWhisperProvider(srv.URL, "", WithWhisperHTTPClient(srv.Client()))
	_, err := p.Transcribe(context.Background(), []byte("x"), "a.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestWhisperProviderDefaultFilename(t *testing.T) {
	var filename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		filename = header.Filename
		_, _ = w.Write([]byte(`{"text": "ok"}`))
	}))
	defer srv.Close()

	p := NewWhisperProvider(srv.URL, "", WithWhisperHTTPClient(srv.Client()))
	_, err := p.Transcribe(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "audio.wav", filename)
}
