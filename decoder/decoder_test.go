/*
NAME
  decoder_test.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package decoder

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/avdstream/avd/bitstream"
	"github.com/avdstream/avd/config"
	"github.com/avdstream/avd/h264"
	"github.com/avdstream/avd/h265"
	"github.com/avdstream/avd/vp9"
)

type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestDetectCodec(t *testing.T) {
	cases := []struct {
		name string
		want config.Codec
	}{
		{"clip.h264", config.CodecH264},
		{"clip.264", config.CodecH264},
		{"clip.h265", config.CodecH265},
		{"clip.265", config.CodecH265},
		{"clip.ivf", config.CodecVP9},
		{"CLIP.IVF", config.CodecVP9},
	}
	for _, c := range cases {
		got, err := DetectCodec(c.name)
		if err != nil {
			t.Errorf("DetectCodec(%q): %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("DetectCodec(%q) = %v, want %v", c.name, got, c.want)
		}
	}
	if _, err := DetectCodec("clip.mp4"); err == nil {
		t.Error("DetectCodec(clip.mp4): expected error, got nil")
	}
}

func TestOpenSelectsFrontEnd(t *testing.T) {
	src, err := Open("clip.h264", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Open(h264): %v", err)
	}
	if src.Scanner == nil || src.IVF != nil {
		t.Error("Open(h264): want Scanner set, IVF nil")
	}

	ivf := []byte{
		'D', 'K', 'I', 'F',
		0, 0, 32, 0,
		'V', 'P', '9', '0',
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	src, err = Open("clip.ivf", bytes.NewReader(ivf))
	if err != nil {
		t.Fatalf("Open(ivf): %v", err)
	}
	if src.IVF == nil || src.Scanner != nil {
		t.Error("Open(ivf): want IVF set, Scanner nil")
	}
}

func h264SPS() *h264.SPS {
	return &h264.SPS{
		ID:                          0,
		ProfileIDC:                  66,
		LevelIDC:                    10,
		ChromaFormatIDC:             h264.ChromaIDC420,
		PicWidthInMBsMinus1:         7, // (7+1)*16 = 128
		PicHeightInMapUnitsMinus1:   3, // (3+1)*16 = 64
		FrameMBSOnlyFlag:            true,
		Log2MaxFrameNumMinus4:       4,
		Log2MaxPicOrderCntLsbMinus4: 4,
		MaxNumRefFrames:             4,
	}
}

func TestH264DecoderDecodeSliceRoundTrips(t *testing.T) {
	cfg := config.New(dumbLogger{}, config.CodecH264)
	cfg.ValidateRoundTrip = true

	d, err := NewH264Decoder(cfg, h264SPS(), &h264.PPS{ID: 0, SeqParameterSetID: 0})
	if err != nil {
		t.Fatalf("NewH264Decoder: %v", err)
	}

	sl := &h264.SliceHeader{
		NALUnitType:       h264.NALSliceIDR,
		NALRefIDC:         1,
		PicParameterSetID: 0,
		SliceType:         h264.SliceTypeI,
		SliceHeaderSize:   32,
		Payload:           make([]byte, 64),
	}
	frame, err := d.DecodeSlice(sl)
	if err != nil {
		t.Fatalf("DecodeSlice: %v", err)
	}
	if len(frame.Words) == 0 {
		t.Error("DecodeSlice produced no words")
	}
	if len(frame.FrameParams) != h264.FrameParamsSize {
		t.Errorf("len(FrameParams) = %d, want %d", len(frame.FrameParams), h264.FrameParamsSize)
	}
}

func h265SPS() *h265.SPS {
	return &h265.SPS{
		ID:                               0,
		ChromaFormatIDC:                  h265.ChromaIDC420,
		PicWidthInLumaSamples:            128,
		PicHeightInLumaSamples:           64,
		Log2MinCbSize:                    3,
		Log2DiffMaxMinCodingBlockSize:    3,
		Log2MinTbSize:                    2,
		Log2DiffMaxMinTransformBlockSize: 3,
	}
}

func TestH265DecoderDecodeSliceRoundTrips(t *testing.T) {
	cfg := config.New(dumbLogger{}, config.CodecH265)
	cfg.ValidateRoundTrip = true

	d, err := NewH265Decoder(cfg, h265SPS(), &h265.PPS{ID: 0, SPSID: 0})
	if err != nil {
		t.Fatalf("NewH265Decoder: %v", err)
	}

	sl := &h265.SliceHeader{
		NALUnitType:                h265.NALIDRWRADL,
		PicParameterSetID:          0,
		FirstSliceSegmentInPicFlag: true,
		SliceType:                  h265.SliceTypeI,
		PicOrderCnt:                0,
		PicOutputFlag:              true,
		SliceHeaderSize:            16,
		Payload:                    make([]byte, 64),
	}
	frame, err := d.DecodeSlice(sl)
	if err != nil {
		t.Fatalf("DecodeSlice: %v", err)
	}
	if len(frame.Words) == 0 {
		t.Error("DecodeSlice produced no words")
	}
	if len(frame.FrameParams) != h265.FrameParamsSize {
		t.Errorf("len(FrameParams) = %d, want %d", len(frame.FrameParams), h265.FrameParamsSize)
	}
}

func TestVP9DecoderDecodeFrameRoundTrips(t *testing.T) {
	cfg := config.New(dumbLogger{}, config.CodecVP9)
	cfg.ValidateRoundTrip = true

	d, err := NewVP9Decoder(cfg, 128, 64)
	if err != nil {
		t.Fatalf("NewVP9Decoder: %v", err)
	}

	f := &vp9.Frame{
		FrameType:   vp9.FrameTypeKey,
		FrameWidth:  128,
		FrameHeight: 64,
		BaseQIdx:    32,
		Tiles: []bitstream.Tile{
			{Row: 0, Col: 0, Offset: 0, Size: 64},
		},
	}
	frame, err := d.DecodeFrame(f)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if len(frame.Words) == 0 {
		t.Error("DecodeFrame produced no words")
	}
	if len(frame.FrameParams) != vp9.FrameParamsSize {
		t.Errorf("len(FrameParams) = %d, want %d", len(frame.FrameParams), vp9.FrameParamsSize)
	}
}

// The following three tests confirm that decoding an identical IDR/
// keyframe slice from two independently constructed decoders produces
// byte-for-byte identical command-stream output, using cmp.Diff the
// way the pack's own parsed-structure comparisons do.

func TestH264DecodeSliceDeterministic(t *testing.T) {
	newDecoder := func(t *testing.T) *H264Decoder {
		t.Helper()
		d, err := NewH264Decoder(config.New(dumbLogger{}, config.CodecH264), h264SPS(), &h264.PPS{ID: 0, SeqParameterSetID: 0})
		if err != nil {
			t.Fatalf("NewH264Decoder: %v", err)
		}
		return d
	}
	newSlice := func() *h264.SliceHeader {
		return &h264.SliceHeader{
			NALUnitType:       h264.NALSliceIDR,
			NALRefIDC:         1,
			PicParameterSetID: 0,
			SliceType:         h264.SliceTypeI,
			SliceHeaderSize:   32,
			Payload:           make([]byte, 64),
		}
	}

	a, err := newDecoder(t).DecodeSlice(newSlice())
	if err != nil {
		t.Fatalf("DecodeSlice(a): %v", err)
	}
	b, err := newDecoder(t).DecodeSlice(newSlice())
	if err != nil {
		t.Fatalf("DecodeSlice(b): %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two fresh decoders diverged on an identical IDR slice (-a +b):\n%s", diff)
	}
}

func TestH265DecodeSliceDeterministic(t *testing.T) {
	newDecoder := func(t *testing.T) *H265Decoder {
		t.Helper()
		d, err := NewH265Decoder(config.New(dumbLogger{}, config.CodecH265), h265SPS(), &h265.PPS{ID: 0, SPSID: 0})
		if err != nil {
			t.Fatalf("NewH265Decoder: %v", err)
		}
		return d
	}
	newSlice := func() *h265.SliceHeader {
		return &h265.SliceHeader{
			NALUnitType:                h265.NALIDRWRADL,
			PicParameterSetID:          0,
			FirstSliceSegmentInPicFlag: true,
			SliceType:                  h265.SliceTypeI,
			PicOrderCnt:                0,
			PicOutputFlag:              true,
			SliceHeaderSize:            16,
			Payload:                    make([]byte, 64),
		}
	}

	a, err := newDecoder(t).DecodeSlice(newSlice())
	if err != nil {
		t.Fatalf("DecodeSlice(a): %v", err)
	}
	b, err := newDecoder(t).DecodeSlice(newSlice())
	if err != nil {
		t.Fatalf("DecodeSlice(b): %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two fresh decoders diverged on an identical IDR slice (-a +b):\n%s", diff)
	}
}

func TestVP9DecodeFrameDeterministic(t *testing.T) {
	newDecoder := func(t *testing.T) *VP9Decoder {
		t.Helper()
		d, err := NewVP9Decoder(config.New(dumbLogger{}, config.CodecVP9), 128, 64)
		if err != nil {
			t.Fatalf("NewVP9Decoder: %v", err)
		}
		return d
	}
	newFrame := func() *vp9.Frame {
		return &vp9.Frame{
			FrameType:   vp9.FrameTypeKey,
			FrameWidth:  128,
			FrameHeight: 64,
			BaseQIdx:    32,
			Tiles: []bitstream.Tile{
				{Row: 0, Col: 0, Offset: 0, Size: 64},
			},
		}
	}

	a, err := newDecoder(t).DecodeFrame(newFrame())
	if err != nil {
		t.Fatalf("DecodeFrame(a): %v", err)
	}
	b, err := newDecoder(t).DecodeFrame(newFrame())
	if err != nil {
		t.Fatalf("DecodeFrame(b): %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two fresh decoders diverged on an identical keyframe (-a +b):\n%s", diff)
	}
}
