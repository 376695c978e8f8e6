package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	apperrors "github.com/kbukum/speakerid/errors"
)

const (
	pcmFormat   = 1
	encodeDepth = 16
)

// ReadWAV decodes a PCM WAV file into a clip.
func ReadWAV(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Clip{}, apperrors.NotFound("audio", path)
		}
		return Clip{}, apperrors.MediaFailed(path, err)
	}
	defer f.Close()

	clip, err := DecodeWAV(f)
	if err != nil {
		return Clip{}, apperrors.MediaFailed(path, err)
	}
	return clip, nil
}

// DecodeWAV decodes PCM WAV data. Samples are scaled to [-1, 1] by the
// source bit depth.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Clip{}, fmt.Errorf("not a valid PCM wav stream")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("decode pcm: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return Clip{}, fmt.Errorf("decode pcm: missing format")
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	scale := float32(1)
	if depth > 1 {
		scale = float32(int64(1) << (depth - 1))
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		s := float32(v) / scale
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		samples[i] = s
	}
	return Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// EncodeWAV writes the clip as 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, c Clip) error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("encode wav: sample rate must be positive")
	}
	ch := c.channels()
	enc := wav.NewEncoder(w, c.SampleRate, encodeDepth, ch, pcmFormat)

	const full = 1<<(encodeDepth-1) - 1
	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * full)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: ch, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: encodeDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// WriteWAV encodes the clip to path.
func WriteWAV(path string, c Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeWAV(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WAVDuration reads the duration of a WAV file from the size of its data
// chunk. The RIFF chunk size also counts header bytes, so it would
// overstate every duration slightly.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperrors.NotFound("audio", path)
		}
		return 0, apperrors.MediaFailed(path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, apperrors.MediaFailed(path, fmt.Errorf("not a valid PCM wav stream"))
	}
	if err := d.FwdToPCM(); err != nil {
		return 0, apperrors.MediaFailed(path, err)
	}
	frameSize := int64(d.NumChans) * int64(d.BitDepth/8)
	if frameSize == 0 || d.SampleRate == 0 {
		return 0, apperrors.MediaFailed(path, fmt.Errorf("wav header has no frame layout"))
	}
	frames := d.PCMLen() / frameSize
	return float64(frames) / float64(d.SampleRate), nil
}

// EncodeWAVBytes returns the clip as 16-bit PCM WAV bytes.
func EncodeWAVBytes(c Clip) ([]byte, error) {
	var ws memWriteSeeker
	if err := EncodeWAV(&ws, c); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// memWriteSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back
// to patch chunk sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
