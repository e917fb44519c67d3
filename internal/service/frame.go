package service

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
)

// frameSentinel 上游流里每条记录的结束标记
var frameSentinel = []byte("STOP")

type streamFrame struct {
	QueryID string  `json:"queryId"`
	Chunk   *string `json:"chunk"`
}

// FrameDecoder 把上游字节流切分成chunk
//
// 作为io.Writer使用,每次Write追加到缓冲区后反复查找结束标记;
// 没有结束标记的半条记录留在缓冲区等待后续字节。
type FrameDecoder struct {
	buf    []byte
	emit   func(string) error
	err    error
	frames int
}

func NewFrameDecoder(emit func(string) error) *FrameDecoder {
	return &FrameDecoder{emit: emit}
}

func (d *FrameDecoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	d.buf = append(d.buf, p...)
	for {
		i := bytes.Index(d.buf, frameSentinel)
		if i < 0 {
			break
		}
		segment := string(d.buf[:i])
		d.buf = d.buf[i+len(frameSentinel):]

		if err := d.dispatch(segment); err != nil {
			d.err = err
			return 0, err
		}
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return len(p), nil
}

// Close 连接关闭时处理没有结束标记的最后一条记录
func (d *FrameDecoder) Close() error {
	if d.err != nil {
		return d.err
	}
	rest := strings.TrimSpace(string(d.buf))
	d.buf = nil
	if rest == "" {
		return nil
	}
	if err := d.dispatch(rest); err != nil {
		d.err = err
	}
	return d.err
}

// Err 回调返回的错误
func (d *FrameDecoder) Err() error {
	return d.err
}

// Frames 已经发出的chunk数
func (d *FrameDecoder) Frames() int {
	return d.frames
}

func (d *FrameDecoder) dispatch(segment string) error {
	for _, line := range strings.Split(strings.TrimSpace(segment), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(strings.TrimSpace(line[len("data:"):])), &frame); err != nil {
			log.Printf("[Stream] skip malformed frame: %v", err)
			continue
		}
		if frame.Chunk == nil {
			continue
		}

		d.frames++
		if err := d.emit(*frame.Chunk); err != nil {
			return err
		}
	}
	return nil
}
