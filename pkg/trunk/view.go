package trunk

// View is a directional reference onto a Trunk. Reversing a View flips a
// boolean flag rather than constructing a new wrapper around the
// reversed view — Reverse().Reverse() is always the identity view onto
// the same trunk, never a fresh allocation chasing its own tail.
type View struct {
	trunk    *Trunk
	reversed bool
}

// ViewOf returns the forward (start->end) View of t.
func ViewOf(t *Trunk) *View {
	return &View{trunk: t}
}

// Reverse returns the View looking the opposite direction along the same
// trunk.
func (v *View) Reverse() *View {
	return &View{trunk: v.trunk, reversed: !v.reversed}
}

// Trunk returns the underlying trunk.
func (v *View) Trunk() *Trunk { return v.trunk }

// Near returns the terminal this view is oriented from.
func (v *View) Near() string {
	if v.reversed {
		return v.trunk.EndTerminal()
	}
	return v.trunk.StartTerminal()
}

// Far returns the terminal this view is oriented toward.
func (v *View) Far() string {
	if v.reversed {
		return v.trunk.StartTerminal()
	}
	return v.trunk.EndTerminal()
}

// NearSide returns which physical side of the trunk (Start or End) Near()
// names.
func (v *View) NearSide() Side {
	if v.reversed {
		return End
	}
	return Start
}

// FarSide returns which physical side of the trunk Far() names.
func (v *View) FarSide() Side {
	if v.reversed {
		return Start
	}
	return End
}

// OutCapacity returns the capacity available carrying traffic from Near()
// to Far().
func (v *View) OutCapacity() float64 {
	up, down := v.trunk.Capacity()
	if v.reversed {
		return down
	}
	return up
}

// InCapacity returns the capacity available carrying traffic from Far()
// to Near().
func (v *View) InCapacity() float64 {
	up, down := v.trunk.Capacity()
	if v.reversed {
		return up
	}
	return down
}

// DefineNearLabelRange declares labels assignable on the near side.
func (v *View) DefineNearLabelRange(lo, hi int) error {
	return v.trunk.DefineLabelRange(v.NearSide(), lo, hi)
}

// DefineFarLabelRange declares labels assignable on the far side.
func (v *View) DefineFarLabelRange(lo, hi int) error {
	return v.trunk.DefineLabelRange(v.FarSide(), lo, hi)
}

// MapLabel binds a near label to a far label, in the view's orientation.
func (v *View) MapLabel(nearLabel, farLabel int) error {
	if v.reversed {
		return v.trunk.MapLabel(farLabel, nearLabel)
	}
	return v.trunk.MapLabel(nearLabel, farLabel)
}

// FarLabelFor returns the far label bound to nearLabel.
func (v *View) FarLabelFor(nearLabel int) (int, bool) {
	if v.reversed {
		return v.trunk.StartLabelFor(nearLabel)
	}
	return v.trunk.EndLabelFor(nearLabel)
}
