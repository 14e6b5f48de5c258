//go:build cgo && !noaudio

package hostenum

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"

	"github.com/bavix/avwatch/internal/devices"
)

// Malgo lists audio capture and playback endpoints through miniaudio.
type Malgo struct{}

// NewMalgo creates an audio enumerator.
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Name returns the enumerator name.
func (m *Malgo) Name() string { return "malgo" }

// Priority returns the enumerator priority.
func (m *Malgo) Priority() int { return PriorityMalgo }

// IsAvailable reports true in builds with audio support.
func (m *Malgo) IsAvailable(context.Context) bool { return true }

// Enumerate lists capture devices as audio inputs and playback devices as
// audio outputs.
func (m *Malgo) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	capture, err := listMalgoDevices(ctx, malgoCtx, malgo.Capture, devices.KindAudioInput)
	if err != nil {
		return nil, err
	}

	playback, err := listMalgoDevices(ctx, malgoCtx, malgo.Playback, devices.KindAudioOutput)
	if err != nil {
		return nil, err
	}

	return append(capture, playback...), nil
}

func listMalgoDevices(
	ctx context.Context,
	malgoCtx *malgo.AllocatedContext,
	typ malgo.DeviceType,
	kind devices.Kind,
) ([]devices.RawDevice, error) {
	infos, err := malgoCtx.Devices(typ)
	if err != nil {
		return nil, fmt.Errorf("list %s devices: %w", kind, err)
	}

	logger := zerolog.Ctx(ctx)
	out := make([]devices.RawDevice, 0, len(infos))
	seen := make(map[string]struct{}, len(infos))

	for _, info := range infos {
		full, err := malgoCtx.DeviceInfo(typ, info.ID, malgo.Shared)
		if err != nil {
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("unable to get audio device info")

			continue
		}

		id := malgoDeviceID(full.ID)
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}

		out = append(out, devices.RawDevice{
			DeviceID: string(kind) + ":" + id,
			Label:    full.Name(),
			Kind:     string(kind),
		})
	}

	return out, nil
}

func malgoDeviceID(id malgo.DeviceID) string {
	return hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
}
