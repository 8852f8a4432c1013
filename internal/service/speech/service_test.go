package speech

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/wikichat/internal/model/speech"
)

type fakeRecognizer struct {
	text   string
	err    error
	audio  []byte
	format string
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	f.audio, _ = io.ReadAll(req.AudioData)
	f.format = req.Format
	if f.err != nil {
		return nil, f.err
	}
	return &speech.ASRResponse{SessionID: req.SessionID, Text: f.text}, nil
}

func wav(samples int) []byte {
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+samples))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], 16000)
	binary.LittleEndian.PutUint32(header[28:32], 32000)
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(samples))
	return append(header, make([]byte, samples)...)
}

func TestClipToWindowRawPCM(t *testing.T) {
	audio := make([]byte, CaptureBytes(7))

	clipped := ClipToWindow(audio, 5)

	assert.Len(t, clipped, 160000)
	assert.Equal(t, "pcm", AudioFormat(clipped))

	short := make([]byte, 1000)
	assert.Len(t, ClipToWindow(short, 5), 1000)
}

func TestClipToWindowKeepsWAVHeader(t *testing.T) {
	audio := wav(CaptureBytes(8))

	clipped := ClipToWindow(audio, 5)

	require.Len(t, clipped, 44+160000)
	assert.Equal(t, audio[8:36], clipped[8:36])
	assert.Equal(t, uint32(160000), binary.LittleEndian.Uint32(clipped[40:44]))
	assert.Equal(t, uint32(len(clipped)-8), binary.LittleEndian.Uint32(clipped[4:8]))
	assert.Equal(t, "wav", AudioFormat(clipped))
	// the source buffer is left alone
	assert.Equal(t, uint32(CaptureBytes(8)), binary.LittleEndian.Uint32(audio[40:44]))
}

func TestTranscribeRecognized(t *testing.T) {
	recognizer := &fakeRecognizer{text: "  albert einstein "}
	svc := NewServiceWithRecognizer(recognizer, &speech.SpeechConfig{CaptureSeconds: 5}, nil)

	result := svc.Transcribe(context.Background(), "s1", wav(CaptureBytes(6)))

	assert.True(t, result.OK())
	assert.Equal(t, "albert einstein", result.Text)
	assert.Len(t, recognizer.audio, 44+160000)
	assert.Equal(t, "wav", recognizer.format)
}

func TestTranscribeUnintelligible(t *testing.T) {
	svc := NewServiceWithRecognizer(&fakeRecognizer{text: "   "}, nil, nil)

	result := svc.Transcribe(context.Background(), "s1", make([]byte, 3200))
	assert.Equal(t, speech.Unintelligible, result.Kind)
	assert.Equal(t, "Sorry, I could not understand the audio.", result.Message)

	result = svc.Transcribe(context.Background(), "s1", nil)
	assert.Equal(t, speech.Unintelligible, result.Kind)
}

func TestTranscribeTransportError(t *testing.T) {
	svc := NewServiceWithRecognizer(&fakeRecognizer{err: errors.New("dial tcp: timeout")}, nil, nil)

	result := svc.Transcribe(context.Background(), "s1", make([]byte, 3200))

	assert.Equal(t, speech.TransportError, result.Kind)
	assert.Equal(t, "Could not request results; dial tcp: timeout", result.Message)
	assert.False(t, result.OK())
}

// fakeASRServer accepts one recognition session and answers with text.
func fakeASRServer(t *testing.T, text string) (*httptest.Server, func() []*Frame) {
	t.Helper()
	var (
		mu       sync.Mutex
		received []*Frame
	)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") != "app" || r.Header.Get("X-Api-Access-Key") != "token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := DecodeFrame(data)
			if err != nil {
				return
			}
			mu.Lock()
			received = append(received, frame)
			mu.Unlock()
			if frame.Type == AudioOnlyRequest && frame.Last() {
				break
			}
		}

		body, _ := json.Marshal(map[string]any{"code": 20000000, "result": map[string]any{"text": text}})
		packed, _ := compress(body, GzipCompression)
		reply := &Frame{
			Type:          FullServerResponse,
			Flags:         NegativeSequence,
			Serialization: JSONPayload,
			Compression:   GzipCompression,
			Sequence:      -1,
			Payload:       packed,
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, reply.Encode())
	}))
	t.Cleanup(srv.Close)
	return srv, func() []*Frame {
		mu.Lock()
		defer mu.Unlock()
		return append([]*Frame(nil), received...)
	}
}

func TestVolcengineASRClientRecognize(t *testing.T) {
	srv, received := fakeASRServer(t, "hello world")

	client := NewVolcengineASRClient(&speech.SpeechConfig{
		AppID:       "app",
		AccessToken: "token",
		BaseURL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		ASRLanguage: "en-US",
	}, nil)
	client.chunkInterval = 0

	audio := make([]byte, audioChunkSize*2+100)
	resp, err := client.Recognize(context.Background(), &speech.ASRRequest{
		SessionID: "s1",
		AudioData: strings.NewReader(string(audio)),
		Format:    "pcm",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text)

	frames := received()
	require.Len(t, frames, 4)
	assert.Equal(t, FullClientRequest, frames[0].Type)

	config, err := frames[0].PlainPayload()
	require.NoError(t, err)
	assert.Contains(t, string(config), `"language":"en-US"`)
	assert.Contains(t, string(config), `"model_name":"bigmodel"`)

	assert.Equal(t, int32(2), frames[1].Sequence)
	assert.Equal(t, int32(3), frames[2].Sequence)
	assert.Equal(t, int32(-4), frames[3].Sequence)
}

func TestVolcengineASRClientRequiresCredentials(t *testing.T) {
	client := NewVolcengineASRClient(&speech.SpeechConfig{}, nil)

	_, err := client.Recognize(context.Background(), &speech.ASRRequest{AudioData: strings.NewReader("x")})

	assert.ErrorContains(t, err, "AppID")
}
