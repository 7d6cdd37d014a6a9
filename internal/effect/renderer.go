package effect

import (
	"errors"

	"github.com/ravenwatch/combatsim/internal/component"
)

// Handle identifies a native effect instance. The zero Handle means the
// renderer failed to spawn the effect.
type Handle uint64

// ErrStaleHandle is returned by Release for a handle the renderer no longer
// knows. The manager treats it as already cleaned up.
var ErrStaleHandle = errors.New("effect: stale handle")

// Renderer is the native effect layer. All methods are called from the tick
// goroutine.
type Renderer interface {
	SpawnGround(path string, pos component.Vec3, rot float32) Handle
	SpawnActor(path string, caster, target uint32) Handle
	UpdatePosition(h Handle, pos component.Vec3)
	UpdateRotation(h Handle, rot float32)
	UpdateScale(h Handle, scale component.Vec3)
	UpdateAlpha(h Handle, alpha float32)
	MarkDirty(h Handle)
	DefaultScale(h Handle) component.Vec3
	// Alive reports whether the native effect is still playing.
	Alive(h Handle) bool
	Release(h Handle) error
}

// SlotState is the lifecycle of the native side of an effect component.
type SlotState uint8

const (
	SlotUnspawned SlotState = iota
	SlotLive
	SlotTerminated // finished natively; never touched again
)

func (s SlotState) String() string {
	switch s {
	case SlotUnspawned:
		return "unspawned"
	case SlotLive:
		return "live"
	case SlotTerminated:
		return "terminated"
	}
	return "unknown"
}

// Slot pairs the state with the handle it refers to. Handle is only
// meaningful while State is SlotLive.
type Slot struct {
	State  SlotState
	Handle Handle

	// component versions last pushed to the native handle
	posVer, rotVer, scaleVer, alphaVer uint64
}
