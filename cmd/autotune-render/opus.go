package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

const (
	// opusSampleRate is the rate decoded Opus audio is delivered at.
	opusSampleRate = 48000
	// maxOpusPacketSamples is 120 ms at 48 kHz, the longest legal packet.
	maxOpusPacketSamples = 5760
)

var opusTagsSignature = []byte("OpusTags")

// opusPacketSamples returns the duration of an Opus packet in samples at
// 48 kHz, read from its table-of-contents byte.
func opusPacketSamples(packet []byte) (int, error) {
	if len(packet) == 0 {
		return 0, fmt.Errorf("%w: empty Opus packet", errFormat)
	}

	toc := packet[0]
	config := int(toc >> 3)

	var frame int

	switch {
	case config < 12:
		frame = [...]int{480, 960, 1920, 2880}[config%4]
	case config < 16:
		frame = [...]int{480, 960}[config%2]
	default:
		frame = [...]int{120, 240, 480, 960}[config%4]
	}

	frames := 1

	switch toc & 0x3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) < 2 {
			return 0, fmt.Errorf("%w: truncated Opus frame count", errFormat)
		}

		frames = int(packet[1] & 0x3f)
	}

	total := frame * frames
	if total > maxOpusPacketSamples {
		return 0, fmt.Errorf("%w: Opus packet of %d samples", errFormat, total)
	}

	return total, nil
}

// decodeOggOpus demuxes an Ogg stream carrying one Opus packet per page and
// decodes it to mono at 48 kHz. The header's pre-skip is dropped.
func decodeOggOpus(r io.Reader) (*clip, error) {
	reader, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errFormat, err)
	}

	decoder := opus.NewDecoder()
	output := make([]byte, maxOpusPacketSamples*2)

	var mono []float32

	packets := 0

	for {
		payload, _, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %v", errFormat, err)
		}

		if len(payload) == 0 || bytes.HasPrefix(payload, opusTagsSignature) {
			continue
		}

		samples, err := opusPacketSamples(payload)
		if err != nil {
			return nil, err
		}

		bandwidth, isStereo, err := decoder.Decode(payload, output)
		if err != nil {
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}

		if packets == 0 {
			logrus.WithFields(logrus.Fields{
				"function":  "decodeOggOpus",
				"bandwidth": bandwidth.String(),
				"is_stereo": isStereo,
				"channels":  header.Channels,
				"pre_skip":  header.PreSkip,
			}).Debug("Opus stream opened")
		}

		mono = appendPCM16(mono, output[:samples*2])
		packets++
	}

	skip := min(int(header.PreSkip), len(mono))
	mono = mono[skip:]

	c := newClip(opusSampleRate, 1, len(mono))
	core.Deinterleave(c.planes, mono)

	return c, nil
}

// appendPCM16 appends little-endian signed 16-bit samples scaled to [-1, 1).
func appendPCM16(dst []float32, pcm []byte) []float32 {
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		dst = append(dst, float32(s)/32768)
	}

	return dst
}
