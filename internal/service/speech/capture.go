package speech

import (
	"bytes"
	"encoding/binary"
)

// 16kHz, 16bit, mono PCM
const pcmBytesPerSecond = 16000 * 2

// CaptureBytes returns the PCM byte budget of a capture window.
func CaptureBytes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return seconds * pcmBytesPerSecond
}

// AudioFormat reports "wav" for RIFF/WAVE input and "pcm" otherwise.
func AudioFormat(audio []byte) string {
	if _, ok := wavDataOffset(audio); ok {
		return "wav"
	}
	return "pcm"
}

// ClipToWindow keeps at most seconds of audio. A WAV header is preserved and
// its size fields are rewritten to match the clipped data.
func ClipToWindow(audio []byte, seconds int) []byte {
	limit := CaptureBytes(seconds)
	if limit == 0 {
		return audio
	}

	offset, ok := wavDataOffset(audio)
	if !ok {
		if len(audio) <= limit {
			return audio
		}
		return audio[:limit:limit]
	}

	if len(audio)-offset <= limit {
		return audio
	}

	clipped := make([]byte, offset+limit)
	copy(clipped, audio[:offset+limit])
	binary.LittleEndian.PutUint32(clipped[offset-4:offset], uint32(limit))
	binary.LittleEndian.PutUint32(clipped[4:8], uint32(len(clipped)-8))
	return clipped
}

// wavDataOffset walks the RIFF chunks and returns where the data chunk's samples begin.
func wavDataOffset(audio []byte) (int, bool) {
	if len(audio) < 12 || !bytes.Equal(audio[0:4], []byte("RIFF")) || !bytes.Equal(audio[8:12], []byte("WAVE")) {
		return 0, false
	}

	offset := 12
	for offset+8 <= len(audio) {
		id := audio[offset : offset+4]
		size := int(binary.LittleEndian.Uint32(audio[offset+4 : offset+8]))
		if bytes.Equal(id, []byte("data")) {
			return offset + 8, true
		}
		offset += 8 + size + size%2
	}
	return 0, false
}
