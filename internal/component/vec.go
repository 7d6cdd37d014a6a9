package component

// Vec3 is a host-space vector (Y up).
type Vec3 struct {
	X, Y, Z float32
}

// IsZero reports whether every axis is zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}
