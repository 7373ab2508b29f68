package services

import (
	"kegelkladde/internal/core"
)

// PresencePenalty is the default penalty charged to a member marked absent.
var PresencePenalty = core.Cents(100)

// AttendancePatch is a partial update of one attendance record. Nil fields
// are left untouched.
type AttendancePatch struct {
	Present            *bool       `json:"present,omitempty"`
	Triclops           *int        `json:"triclops,omitempty"`
	Alle9              *int        `json:"alle9,omitempty"`
	Kranz              *int        `json:"kranz,omitempty"`
	Pudel              *int        `json:"pudel,omitempty"`
	Penalties          *core.Money `json:"penalties,omitempty"`
	VA                 *core.Money `json:"va,omitempty"`
	Monte              *core.Money `json:"monte,omitempty"`
	Aussteigen         *core.Money `json:"aussteigen,omitempty"`
	SechsTage          *core.Money `json:"sechs_tage,omitempty"`
	MonteTiebreak      *int        `json:"monte_tiebreak,omitempty"`
	AussteigenTiebreak *int        `json:"aussteigen_tiebreak,omitempty"`
	Paid               *core.Money `json:"paid,omitempty"`
}

// Fields lists the columns the patch writes.
func (p AttendancePatch) Fields() []core.Field {
	var fs []core.Field
	add := func(set bool, f core.Field) {
		if set {
			fs = append(fs, f)
		}
	}
	add(p.Present != nil, core.FieldPresent)
	add(p.Triclops != nil, core.FieldTriclops)
	add(p.Alle9 != nil, core.FieldAlle9)
	add(p.Kranz != nil, core.FieldKranz)
	add(p.Pudel != nil, core.FieldPudel)
	add(p.Penalties != nil, core.FieldPenalties)
	add(p.VA != nil, core.FieldVA)
	add(p.Monte != nil, core.FieldMonte)
	add(p.Aussteigen != nil, core.FieldAussteigen)
	add(p.SechsTage != nil, core.FieldSechsTage)
	add(p.MonteTiebreak != nil, core.FieldMonteTiebreak)
	add(p.AussteigenTiebreak != nil, core.FieldAussteigenTiebreak)
	add(p.Paid != nil, core.FieldPaid)
	return fs
}

// IsEmpty reports whether the patch changes nothing.
func (p AttendancePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Normalize rejects negative values and clamps the rest into the stored
// ranges. The receiver is not modified.
func (p AttendancePatch) Normalize() (AttendancePatch, error) {
	out := p
	counts := []struct {
		field core.Field
		v     **int
	}{
		{core.FieldTriclops, &out.Triclops},
		{core.FieldAlle9, &out.Alle9},
		{core.FieldKranz, &out.Kranz},
		{core.FieldPudel, &out.Pudel},
		{core.FieldMonteTiebreak, &out.MonteTiebreak},
		{core.FieldAussteigenTiebreak, &out.AussteigenTiebreak},
	}
	for _, c := range counts {
		if *c.v == nil {
			continue
		}
		n, err := clampCount(c.field, **c.v)
		if err != nil {
			return p, err
		}
		*c.v = &n
	}

	amounts := []struct {
		field core.Field
		v     **core.Money
	}{
		{core.FieldPenalties, &out.Penalties},
		{core.FieldVA, &out.VA},
		{core.FieldMonte, &out.Monte},
		{core.FieldAussteigen, &out.Aussteigen},
		{core.FieldSechsTage, &out.SechsTage},
		{core.FieldPaid, &out.Paid},
	}
	for _, a := range amounts {
		if *a.v == nil {
			continue
		}
		m, err := clampAmount(string(a.field), **a.v)
		if err != nil {
			return p, err
		}
		*a.v = &m
	}
	return out, nil
}

// Apply writes the patch onto r. When presence flips and the patch does not
// set penalties itself, the default absence penalty is added or removed:
// going absent with no penalty charges PresencePenalty, coming back with
// exactly PresencePenalty clears it.
func (p AttendancePatch) Apply(r core.AttendanceRecord) core.AttendanceRecord {
	if p.Present != nil {
		if p.Penalties == nil && *p.Present != r.Present {
			switch {
			case !*p.Present && r.Penalties.IsZero():
				r.Penalties = PresencePenalty
			case *p.Present && r.Penalties == PresencePenalty:
				r.Penalties = core.Money{}
			}
		}
		r.Present = *p.Present
	}
	setInt(&r.Triclops, p.Triclops)
	setInt(&r.Alle9, p.Alle9)
	setInt(&r.Kranz, p.Kranz)
	setInt(&r.Pudel, p.Pudel)
	setInt(&r.MonteTiebreak, p.MonteTiebreak)
	setInt(&r.AussteigenTiebreak, p.AussteigenTiebreak)
	if p.Penalties != nil {
		r.Penalties = *p.Penalties
	}
	setSideGame(&r.VA, p.VA)
	setSideGame(&r.Monte, p.Monte)
	setSideGame(&r.Aussteigen, p.Aussteigen)
	setSideGame(&r.SechsTage, p.SechsTage)
	if p.Paid != nil {
		r.Paid = *p.Paid
	}
	return r
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setSideGame(dst *core.NullMoney, v *core.Money) {
	if v != nil {
		*dst = core.SomeMoney(*v)
	}
}

func clampCount(field core.Field, n int) (int, error) {
	if n < 0 {
		return 0, &core.ValidationError{Field: string(field), Err: core.ErrNegativeCount}
	}
	if n > core.MaxMarkerCount {
		return core.MaxMarkerCount, nil
	}
	return n, nil
}

func clampAmount(field string, m core.Money) (core.Money, error) {
	if m.IsNegative() {
		return core.Money{}, &core.ValidationError{Field: field, Err: core.ErrInvalidAmount}
	}
	return m.Clamp(core.Money{}, core.Cents(core.MaxAmountCents)), nil
}
