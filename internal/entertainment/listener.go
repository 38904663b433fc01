package entertainment

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/pion/dtls/v3"
	"github.com/rs/zerolog"

	"github.com/nilclass/huebridge/internal/resource"
)

// Frame is one parsed HueStream packet handed off from the UDP listener
// to whichever back-end adapter owns the targeted entertainment
// configuration (spec.md §9: "the listener only parses and dispatches;
// it never resolves channel mappings itself").
type Frame struct {
	Area      string // empty for a v1 stream, set to the Area UUID for v2
	ColorMode ColorMode
	V1        []RecordV1
	V2        []RecordV2
}

// FrameHandler receives frames as they arrive. It must not block for
// long: the listener serves one connection at a time per client and a
// slow handler delays the next datagram's processing.
type FrameHandler func(Frame)

// Listen starts a DTLS-PSK UDP server on listen (":2100" by default) and
// dispatches parsed frames to handler until ctx is cancelled. identity
// and key are the single statically configured PSK credentials (spec.md
// §6 entertainment.psk_identity / psk_key); a client presenting any
// other identity fails the handshake.
func Listen(ctx context.Context, listen, identity, key string, handler FrameHandler, logger zerolog.Logger) error {
	psk, err := hex.DecodeString(key)
	if err != nil {
		return fmt.Errorf("decode psk key: %w", err)
	}

	addr, err := net.ResolveUDPAddr("udp", listen)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", listen, err)
	}

	config := &dtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			if string(hint) != identity {
				return nil, fmt.Errorf("unknown psk identity %q", hint)
			}
			return psk, nil
		},
		PSKIdentityHint: []byte(identity),
		CipherSuites:    []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
	}

	ln, err := dtls.Listen("udp", addr, config)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			logger.Warn().Err(err).Msg("entertainment listener accept failed")
			continue
		}
		go serveConn(ctx, conn, handler, logger)
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler FrameHandler, logger zerolog.Logger) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		packet, err := Parse(buf[:n])
		if err != nil {
			logger.Debug().Err(err).Msg("dropping malformed entertainment packet")
			continue
		}
		handler(toFrame(packet))
	}
}

func toFrame(p Packet) Frame {
	if p.V1 != nil {
		return Frame{ColorMode: p.V1.ColorMode, V1: p.V1.Records}
	}
	return Frame{Area: p.V2.Area.String(), ColorMode: p.V2.ColorMode, V2: p.V2.Records}
}

// ToFrameChannels normalizes a v2 frame's records into the back-end
// agnostic channel samples carried on a resource.BackendRequest
// (EntertainmentRequestFrame), so the manager can broadcast one common
// representation and let each adapter project it onto its own wire
// format (Zigbee cluster command vs DDP).
func ToFrameChannels(f Frame) []resource.EntertainmentFrameChannel {
	out := make([]resource.EntertainmentFrameChannel, 0, len(f.V2))
	for _, rec := range f.V2 {
		x, y, brightness := SampleXYB(rec, f.ColorMode)
		ch := resource.EntertainmentFrameChannel{
			Channel:    int(rec.Channel),
			X:          x,
			Y:          y,
			Brightness: brightness,
			HasXY:      true,
		}
		if rec.RGB != nil {
			r, g, b := rec.RGB.ToNormalized()
			ch.RGB = [3]uint8{r, g, b}
		} else {
			rgb := xyBrightnessToRGB888(x, y, brightness)
			ch.RGB = [3]uint8{rgb[0], rgb[1], rgb[2]}
		}
		out = append(out, ch)
	}
	return out
}
