/*
NAME
  decoder.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package decoder wires the allocator, per-codec DPB manager, HAL
// emitter and bitstream pre-parser adaptor into one entry point per
// codec, and auto-detects which codec a stream needs from its file
// extension (spec §6). It does not parse slice-header syntax itself:
// callers (or a caller-supplied parser sitting in front of Source) are
// expected to turn NAL/IVF payloads into this module's SliceHeader/
// SPS/PPS/Frame types, the way AVDDecoder.setup/decode delegate to an
// injected parser class in the reference implementation.
package decoder

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/avdstream/avd/allocator"
	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/bitstream"
	"github.com/avdstream/avd/config"
	"github.com/avdstream/avd/h264"
	"github.com/avdstream/avd/h265"
	"github.com/avdstream/avd/instruction"
	"github.com/avdstream/avd/vp9"
)

// DetectCodec maps name's extension to the AVD codec mode it selects
// (spec §6): ".h264"/".264" for H.264, ".h265"/".265" for H.265,
// ".ivf" for VP9.
func DetectCodec(name string) (config.Codec, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".h264", ".264":
		return config.CodecH264, nil
	case ".h265", ".265":
		return config.CodecH265, nil
	case ".ivf":
		return config.CodecVP9, nil
	default:
		return 0, avderr.New(avderr.UnsupportedStream, "decoder: unrecognized extension %q", filepath.Ext(name))
	}
}

// Frame is one access unit's command-stream output (spec §6): the
// ordered 32-bit instruction-FIFO word sequence and the binary
// FrameParams mirror blob a caller can diff against a firmware trace.
type Frame struct {
	Words       []uint32
	FrameParams []byte
}

// Source is the pre-parser bitstream front-end for a stream, selected
// by DetectCodec. Exactly one of Scanner (Annex-B, H.264/H.265) or IVF
// (VP9) is set, matching which container the codec uses.
type Source struct {
	Codec   config.Codec
	Scanner *bitstream.Scanner
	IVF     *bitstream.IVFDemuxer
}

// Open detects name's codec from its extension and wraps r with the
// matching pre-parser adaptor. This is the module's io.Reader-based
// entry point (spec Non-goals: file I/O is a caller concern, only
// NAL/IVF boundary detection lives here).
func Open(name string, r io.Reader) (*Source, error) {
	codec, err := DetectCodec(name)
	if err != nil {
		return nil, err
	}
	switch codec {
	case config.CodecH264, config.CodecH265:
		return &Source{Codec: codec, Scanner: bitstream.NewScanner(r)}, nil
	case config.CodecVP9:
		demux, err := bitstream.NewIVFDemuxer(r)
		if err != nil {
			return nil, err
		}
		return &Source{Codec: codec, IVF: demux}, nil
	default:
		return nil, avderr.New(avderr.UnsupportedStream, "decoder: codec %v", codec)
	}
}

// fieldMirror is implemented by every codec's FrameParams type. It
// lets validateRoundTrip check spec invariant P2 without depending on
// any one codec package's concrete FrameParams type.
type fieldMirror interface {
	Field(name instruction.FpField, idx int) uint32
}

// validateRoundTrip re-reads every instruction this frame emitted back
// out of fp and confirms it matches what was written. It backs
// config.Config.ValidateRoundTrip; callers that don't set that toggle
// never pay for it.
func validateRoundTrip(stream *instruction.Stream, fp fieldMirror) error {
	for _, inst := range stream.Instructions() {
		idx := inst.Idx
		if idx < 0 {
			idx = 0
		}
		if got := fp.Field(inst.Name, idx); got != inst.Val {
			return avderr.New(avderr.MalformedStream, "decoder: frameparams round-trip mismatch at field %v[%d]: got 0x%x, want 0x%x", inst.Name, idx, got, inst.Val)
		}
	}
	return nil
}

// H264Decoder wires an allocator, h264.Context and h264.Manager for
// one stream.
type H264Decoder struct {
	cfg *config.Config
	A   *allocator.Allocator
	Ctx *h264.Context
	Mgr *h264.Manager
}

// NewH264Decoder activates sps/pps and allocates the H.264 buffer
// layout (h264.NewContext), matching AVDH264Decoder.setup.
func NewH264Decoder(cfg *config.Config, sps *h264.SPS, pps *h264.PPS) (*H264Decoder, error) {
	if cfg == nil {
		cfg = config.New(nil, config.CodecH264)
	}
	a := allocator.New(cfg.Logger())
	ctx, err := h264.NewContext(cfg.Logger(), a, sps)
	if err != nil {
		return nil, err
	}
	if err := ctx.PPS.Activate(pps.ID, pps); err != nil {
		return nil, err
	}
	ctx.ActivePPS = pps
	return &H264Decoder{cfg: cfg, A: a, Ctx: ctx, Mgr: h264.NewManager(ctx)}, nil
}

// DecodeSlice runs one slice through InitSlice, the HAL and
// FinishSlice, and returns its command-stream output.
func (d *H264Decoder) DecodeSlice(sl *h264.SliceHeader) (*Frame, error) {
	pic, err := d.Mgr.InitSlice(sl)
	if err != nil {
		return nil, err
	}
	d.Ctx.SliceDataAddr, d.Ctx.SliceDataSize = d.A.ReallocSliceData(uint64(sl.PayloadSize()), d.Ctx.SliceDataSize)
	fp := h264.NewFrameParams()
	stream, err := h264.Decode(d.Ctx, sl, pic, fp)
	if err != nil {
		return nil, avderr.Wrap(err, avderr.MalformedStream, "decoder: h264 slice decode")
	}
	if d.cfg.ValidateRoundTrip {
		if err := validateRoundTrip(stream, fp); err != nil {
			return nil, err
		}
	}
	if err := d.Mgr.FinishSlice(sl, pic); err != nil {
		return nil, err
	}
	return &Frame{Words: stream.Words(), FrameParams: fp.Bytes()}, nil
}

// H265Decoder wires an allocator, h265.Context and h265.Manager for
// one stream.
type H265Decoder struct {
	cfg *config.Config
	A   *allocator.Allocator
	Ctx *h265.Context
	Mgr *h265.Manager
}

// NewH265Decoder activates sps/pps and allocates the H.265 buffer
// layout (h265.NewContext).
func NewH265Decoder(cfg *config.Config, sps *h265.SPS, pps *h265.PPS) (*H265Decoder, error) {
	if cfg == nil {
		cfg = config.New(nil, config.CodecH265)
	}
	a := allocator.New(cfg.Logger())
	ctx, err := h265.NewContext(cfg.Logger(), a, sps, pps)
	if err != nil {
		return nil, err
	}
	return &H265Decoder{cfg: cfg, A: a, Ctx: ctx, Mgr: h265.NewManager(ctx)}, nil
}

// DecodeSlice runs one slice through InitSlice, the HAL and
// FinishSlice, and returns its command-stream output.
func (d *H265Decoder) DecodeSlice(sl *h265.SliceHeader) (*Frame, error) {
	if _, err := d.Mgr.InitSlice(sl); err != nil {
		return nil, err
	}
	addr, size := d.A.ReallocSliceData(uint64(sl.PayloadSize()), uint64(d.Ctx.SliceDataSize))
	d.Ctx.SliceDataAddr, d.Ctx.SliceDataSize = addr, int(size)
	fp := h265.NewFrameParams()
	stream, err := h265.Decode(d.Ctx, sl, fp)
	if err != nil {
		return nil, avderr.Wrap(err, avderr.MalformedStream, "decoder: h265 slice decode")
	}
	if d.cfg.ValidateRoundTrip {
		if err := validateRoundTrip(stream, fp); err != nil {
			return nil, err
		}
	}
	if err := d.Mgr.FinishSlice(sl); err != nil {
		return nil, err
	}
	return &Frame{Words: stream.Words(), FrameParams: fp.Bytes()}, nil
}

// VP9Decoder wires an allocator, vp9.Context and vp9.Manager for one
// stream. Unlike the Annex-B codecs, VP9 needs no parameter-set
// activation: width/height come from the IVF header (vp9.NewContext).
type VP9Decoder struct {
	cfg *config.Config
	A   *allocator.Allocator
	Ctx *vp9.Context
	Mgr *vp9.Manager
}

// NewVP9Decoder allocates the VP9 buffer layout for width/height
// (vp9.NewContext).
func NewVP9Decoder(cfg *config.Config, width, height int) (*VP9Decoder, error) {
	if cfg == nil {
		cfg = config.New(nil, config.CodecVP9)
	}
	a := allocator.New(cfg.Logger())
	ctx, err := vp9.NewContext(cfg.Logger(), a, width, height)
	if err != nil {
		return nil, err
	}
	return &VP9Decoder{cfg: cfg, A: a, Ctx: ctx, Mgr: vp9.NewManager(ctx)}, nil
}

// DecodeFrame runs one frame through InitSlice, the HAL and
// FinishSlice, and returns its command-stream output. f.Tiles must
// already be populated (bitstream.SplitTiles).
func (d *VP9Decoder) DecodeFrame(f *vp9.Frame) (*Frame, error) {
	if _, err := d.Mgr.InitSlice(f); err != nil {
		return nil, err
	}
	d.Ctx.SliceDataAddr, d.Ctx.SliceDataSize = d.A.ReallocSliceData(uint64(f.PayloadSize()), d.Ctx.SliceDataSize)
	fp := vp9.NewFrameParams()
	stream, err := vp9.Decode(d.Ctx, f, fp)
	if err != nil {
		return nil, avderr.Wrap(err, avderr.MalformedStream, "decoder: vp9 frame decode")
	}
	if d.cfg.ValidateRoundTrip {
		if err := validateRoundTrip(stream, fp); err != nil {
			return nil, err
		}
	}
	if err := d.Mgr.FinishSlice(f); err != nil {
		return nil, err
	}
	return &Frame{Words: stream.Words(), FrameParams: fp.Bytes()}, nil
}
