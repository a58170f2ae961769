/*
NAME
  config.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package config contains the ambient configuration for the command-
// stream generator: the logger every sub-package threads through,
// debug toggles, and the fixed hardware layout constants from the
// external-interfaces section of the specification this module
// implements.
package config

import (
	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Codec identifies which AVD codec mode a Config/Decoder targets.
type Codec int

// Codec mode constants, matching the CM3 command opcode's codec mode
// flags field.
const (
	CodecH264 Codec = 1
	CodecVP9  Codec = 2
	CodecH265 Codec = 3
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecH265:
		return "h265"
	case CodecVP9:
		return "vp9"
	default:
		return "unknown"
	}
}

// Hardware layout constants, fixed regardless of stream dimensions.
const (
	// SRAMAliasBase is the SRAM alias base address.
	SRAMAliasBase = 0x10000000
	// SRAMAliasSize is the SRAM alias window size.
	SRAMAliasSize = 0x10000
	// PhysSRAMOffset is the physical SRAM offset.
	PhysSRAMOffset = 0x108c000
	// MMIO1Base is the MMIO1 base address.
	MMIO1Base = 0x3f000000

	// InstFIFOEntries is the number of instruction-FIFO entries on the
	// CM3 side.
	InstFIFOEntries = 4
	// InstFIFOEntrySize is the byte size of one instruction-FIFO
	// entry.
	InstFIFOEntrySize = 0xe68

	// DART1FIFOEntries is the number of DART1 FIFO entries.
	DART1FIFOEntries = 16
	// DART1FIFOEntrySize is the byte size of one DART1 FIFO entry.
	DART1FIFOEntrySize = 0xb8000
	// FrameParamsBase is the IOVA of fifo1_idx's frame-params blob:
	// FrameParamsBase + fifo1_idx*DART1FIFOEntrySize.
	FrameParamsBase = 0x4000
)

// Command opcodes at FIFO offset 0, bits 0..4.
const (
	CmdInit   = 0
	CmdDecode = 1
	CmdAbort  = 2
)

// Allocator anchors, per codec family (spec §4.1, §6).
const (
	// InstFIFOBaseH264 is the inst_fifo IOVA for H.264/H.265 streams.
	InstFIFOBaseH264 = 0x4000
	// InstFIFOBaseVP9 is the inst_fifo IOVA for VP9 streams.
	InstFIFOBaseVP9 = 0x2c000
	// RVRA0Base is the rvra0 IOVA after the allocator is moved up past
	// the inst-FIFO region (H.264/H.265).
	RVRA0Base = 0x734000
)

// Config holds the knobs that are genuinely configuration rather than
// derived bitstream state.
type Config struct {
	// Log is the logger threaded through the allocator, DPB managers
	// and HAL emitters. Debug-level logs mirror the reference
	// implementation's per-instruction trace; Warning is used for the
	// fault-tolerant ReferenceMissing path. Library code never calls
	// Error or Fatal: decode failures are returned as errors.
	//
	// NewWithLogFile builds this logger around a rolling lumberjack
	// file, the way cmd/rv wires its fileLog.
	Log logging.Logger

	// ValidateRoundTrip enables a debug-only check that, once a slice or
	// frame has been emitted, reads every emitted instruction word back
	// from the FrameParams mirror and returns a MalformedStream error on
	// the first mismatch. Off by default.
	ValidateRoundTrip bool

	// Codec selects which codec mode this Config targets. Decoder
	// auto-detection (spec §6) sets this from the input file
	// extension; callers constructing a Config directly for a single
	// codec package set it explicitly.
	Codec Codec
}

// New returns a Config with the given logger and codec, and
// ValidateRoundTrip off.
func New(log logging.Logger, codec Codec) *Config {
	return &Config{Log: log, Codec: codec}
}

// NewWithLogFile returns a Config whose logger writes to a rolling log
// file at path, matching cmd/rv's fileLog/logging.New wiring for
// long-running decode-harness sessions: a lumberjack.Logger rotated at
// maxSizeMB megabytes, keeping maxBackups old files.
func NewWithLogFile(level int8, path string, maxSizeMB, maxBackups int, codec Codec) *Config {
	roller := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return &Config{Log: logging.New(level, roller, false), Codec: codec}
}

// logger returns c.Log, or a suppressed logger if c is nil or c.Log is
// nil, so callers can always log without a nil check.
func (c *Config) logger() logging.Logger {
	if c == nil || c.Log == nil {
		return logging.New(logging.Error, nil, true)
	}
	return c.Log
}

// Logger returns a usable logger for c, falling back to a suppressed
// logger if none was configured.
func (c *Config) Logger() logging.Logger { return c.logger() }
