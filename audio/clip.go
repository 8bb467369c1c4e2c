package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Clip 解码后的 16 位交织 PCM 音效
type Clip struct {
	Name       string
	SampleRate int
	Channels   int
	Loop       bool
	Samples    []int16
}

// Duration 返回音效时长（毫秒）
func (c *Clip) Duration() int {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels * 1000 / c.SampleRate
}

// wavHeader 标准 44 字节 PCM WAV 头
type wavHeader struct {
	RiffMark      [4]byte // "RIFF"
	FileSize      uint32  // 文件总大小-8
	WaveMark      [4]byte // "WAVE"
	FmtMark       [4]byte // "fmt "
	FmtSize       uint32  // fmt chunk大小(16)
	AudioFormat   uint16  // 1=PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // NumChannels * BitsPerSample/8
	BitsPerSample uint16 // 16
	DataMark      [4]byte // "data"
	DataSize      uint32  // 原始数据大小
}

type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// LoadWAV 从文件加载 16 位 PCM WAV
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// DecodeWAV 解析 RIFF/WAVE，跳过 fmt 和 data 以外的 chunk
func DecodeWAV(r io.Reader) (*Clip, error) {
	var riff struct {
		Mark [4]byte
		Size uint32
		Wave [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrInvalidClip, err)
	}
	if string(riff.Mark[:]) != "RIFF" || string(riff.Wave[:]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrInvalidClip)
	}

	var (
		format    *wavFormat
		chunkID   [4]byte
		chunkSize uint32
	)
	for {
		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidClip)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("%w: truncated chunk header", ErrInvalidClip)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			format = &wavFormat{}
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrInvalidClip)
			}
			if err := binary.Read(r, binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidClip)
			}
			if err := skip(r, int64(chunkSize-16)+int64(chunkSize&1)); err != nil {
				return nil, err
			}
			if format.AudioFormat != 1 || format.BitsPerSample != 16 {
				return nil, fmt.Errorf("%w: only 16-bit PCM is supported", ErrInvalidClip)
			}
			if format.NumChannels == 0 || format.SampleRate == 0 {
				return nil, fmt.Errorf("%w: bad format", ErrInvalidClip)
			}

		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data before fmt chunk", ErrInvalidClip)
			}
			samples := make([]int16, chunkSize/2)
			if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
				return nil, fmt.Errorf("%w: truncated data chunk", ErrInvalidClip)
			}
			return &Clip{
				SampleRate: int(format.SampleRate),
				Channels:   int(format.NumChannels),
				Samples:    samples,
			}, nil

		default:
			if err := skip(r, int64(chunkSize)+int64(chunkSize&1)); err != nil {
				return nil, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: truncated chunk", ErrInvalidClip)
	}
	return nil
}

// WriteWAV 将音效写为 16 位 PCM WAV
func WriteWAV(w io.Writer, c *Clip) error {
	dataSize := uint32(len(c.Samples) * 2)
	header := wavHeader{
		RiffMark:      [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      36 + dataSize,
		WaveMark:      [4]byte{'W', 'A', 'V', 'E'},
		FmtMark:       [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(c.Channels),
		SampleRate:    uint32(c.SampleRate),
		BitsPerSample: 16,
		DataMark:      [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	header.ByteRate = header.SampleRate * uint32(header.NumChannels) * uint32(header.BitsPerSample) / 8
	header.BlockAlign = header.NumChannels * header.BitsPerSample / 8

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &header); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, c.Samples); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Tone 生成正弦提示音，没有音频文件时的占位音效
func Tone(name string, sampleRate, channels, freq, durationMs int) *Clip {
	frames := sampleRate * durationMs / 1000
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(2*math.Pi*float64(freq)*float64(i)/float64(sampleRate)) * 0.3 * math.MaxInt16)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return &Clip{
		Name:       name,
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}
}

// bytesToInt16 将小端 byte 切片转换为 int16 切片
func bytesToInt16(b []byte) []int16 {
	if len(b)%2 != 0 {
		b = b[:len(b)-1] // 确保长度是偶数
	}

	pcm := make([]int16, len(b)/2)
	for i := 0; i < len(pcm); i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return pcm
}

func int16ToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return b
}
