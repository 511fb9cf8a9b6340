// Package rules implements the per-object disqualification checks.
//
// Every check reads one object snapshot, the ego motion, the calibration and a
// handful of derived values and returns the relevance bits it wants cleared.
// Checks never set bits and never touch other objects, so they can be applied
// in any order. The two hysteresis counters and the movement probability clamp
// are Updaters and run in a separate phase before any check.
package rules

import (
	"fmt"
	"math/bits"

	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
)

// ID identifies a check. IDs are dense and follow registry order.
type ID uint8

const (
	SuppressionUntilNextVideoUpdate ID = iota
	VideoOTCSuppression
	UnreliableAngularVelocity
	StatLocHighMicroDopplerOutgoingVr
	MeasuredRatioFastWnj
	NonCrossingObject
	WaterSprinkles
	MeasuredRatioRadarOnlyLongitudinal
	MicroDoppler
	RadarOnlyRcsDrInnovation
	Elevation
	NonPlausibleLocation
	FourPlusWheeler
	Split
	OrientationConsistency
	StationaryVruVideoGhost
	Innovation
	ImplausibleVyVru
	SensorBasedInnovation
	ImplausibleVideoTTCVru
	VyInconsistent
	VideoHandleShared
	RadarOnlyNLD
	RadarOnlyStationary
	MeasuredRatioStandingLongitudinalVru
	ImplausiblyAcceleratingVru
	UndefinedCrossingVruFromCorner
	ImplausiblePedestrian
	ImplausiblePedestrianLRR
	ImplausibleCarCloseRange
	ElevatedObject
	Bridge
	CornerRadarStationaryFirstAssociation
	InconsistentAlpha
	NumRules
)

var ruleNames = [NumRules]string{
	"suppression_until_next_video_update",
	"video_otc_suppression",
	"unreliable_angular_velocity",
	"stat_loc_high_micro_doppler_outgoing_vr",
	"measured_ratio_fast_wnj",
	"non_crossing_object",
	"water_sprinkles",
	"measured_ratio_radar_only_longitudinal",
	"micro_doppler",
	"radar_only_rcs_dr_innovation",
	"elevation",
	"non_plausible_location",
	"four_plus_wheeler",
	"split",
	"orientation_consistency",
	"stationary_vru_video_ghost",
	"innovation",
	"implausible_vy_vru",
	"sensor_based_innovation",
	"implausible_video_ttc_vru",
	"vy_inconsistent",
	"video_handle_shared",
	"radar_only_nld",
	"radar_only_stationary",
	"measured_ratio_standing_longitudinal_vru",
	"implausibly_accelerating_vru",
	"undefined_crossing_vru_from_corner",
	"implausible_pedestrian",
	"implausible_pedestrian_lrr",
	"implausible_car_close_range",
	"elevated_object",
	"bridge",
	"corner_radar_stationary_first_association",
	"inconsistent_alpha",
}

func (id ID) String() string {
	if id < NumRules {
		return ruleNames[id]
	}
	return fmt.Sprintf("rule(%d)", uint8(id))
}

// ParseID maps a rule name back to its ID.
func ParseID(name string) (ID, bool) {
	for i, n := range ruleNames {
		if n == name {
			return ID(i), true
		}
	}
	return 0, false
}

// Set is a set of rule IDs.
type Set uint64

// Add inserts id.
func (s *Set) Add(id ID) { *s |= 1 << id }

// Has reports whether id is in s.
func (s Set) Has(id ID) bool { return s&(1<<id) != 0 }

// Len is the number of rules in s.
func (s Set) Len() int { return bits.OnesCount64(uint64(s)) }

// IDs lists the members of s in registry order.
func (s Set) IDs() []ID {
	out := make([]ID, 0, s.Len())
	for id := ID(0); id < NumRules; id++ {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Context is everything a check or updater may look at for one object.
type Context struct {
	Object    *track.Object
	Ego       track.EgoMotion
	Params    *Params
	Derived   Derived
	Neighbors Neighbors

	// StrictInvariants turns data invariant violations into panics instead of
	// ops log entries.
	StrictInvariants bool
}

// NewContext builds a context and computes the derived values for o.
func NewContext(o *track.Object, ego track.EgoMotion, p *Params, n Neighbors) *Context {
	c := &Context{Object: o, Ego: ego, Params: p, Neighbors: n}
	c.Derived = Derive(o, ego)
	return c
}

// Reset points an existing context at another object, recomputing the derived
// values. The engine reuses one context per cycle.
func (c *Context) Reset(o *track.Object) {
	c.Object = o
	c.Derived = Derive(o, c.Ego)
}

func (c *Context) invariantViolated(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.StrictInvariants {
		panic(msg)
	}
	monitoring.Opsf("invariant violated for object %d: %s", c.Object.ID, msg)
}

// Rule is one disqualification check.
type Rule interface {
	ID() ID
	// Check returns the bits to clear, 0 if the rule does not apply.
	Check(c *Context) relevance.BitField
}

type ruleFunc struct {
	id ID
	fn func(*Context) relevance.BitField
}

func (r ruleFunc) ID() ID { return r.id }
func (r ruleFunc) Check(c *Context) relevance.BitField { return r.fn(c) }

// NewRule wraps a check function as a Rule.
func NewRule(id ID, fn func(*Context) relevance.BitField) Rule {
	return ruleFunc{id: id, fn: fn}
}

// Default returns the full registry in evaluation order.
func Default() []Rule {
	return []Rule{
		NewRule(SuppressionUntilNextVideoUpdate, checkSuppressionUntilNextVideoUpdate),
		NewRule(VideoOTCSuppression, checkVideoOTCSuppression),
		NewRule(UnreliableAngularVelocity, checkUnreliableAngularVelocity),
		NewRule(StatLocHighMicroDopplerOutgoingVr, checkStatLocHighMicroDopplerOutgoingVr),
		NewRule(MeasuredRatioFastWnj, checkMeasuredRatioFastWnj),
		NewRule(NonCrossingObject, checkNonCrossingObject),
		NewRule(WaterSprinkles, checkWaterSprinkles),
		NewRule(MeasuredRatioRadarOnlyLongitudinal, checkMeasuredRatioRadarOnlyLongitudinal),
		NewRule(MicroDoppler, checkMicroDoppler),
		NewRule(RadarOnlyRcsDrInnovation, checkRadarOnlyRcsDrInnovation),
		NewRule(Elevation, checkElevation),
		NewRule(NonPlausibleLocation, checkNonPlausibleLocation),
		NewRule(FourPlusWheeler, checkFourPlusWheeler),
		NewRule(Split, checkSplit),
		NewRule(OrientationConsistency, checkOrientationConsistency),
		NewRule(StationaryVruVideoGhost, checkStationaryVruVideoGhost),
		NewRule(Innovation, checkInnovation),
		NewRule(ImplausibleVyVru, checkImplausibleVyVru),
		NewRule(SensorBasedInnovation, checkSensorBasedInnovation),
		NewRule(ImplausibleVideoTTCVru, checkImplausibleVideoTTCVru),
		NewRule(VyInconsistent, checkVyInconsistent),
		NewRule(VideoHandleShared, checkVideoHandleShared),
		NewRule(RadarOnlyNLD, checkRadarOnlyNLD),
		NewRule(RadarOnlyStationary, checkRadarOnlyStationary),
		NewRule(MeasuredRatioStandingLongitudinalVru, checkMeasuredRatioStandingLongitudinalVru),
		NewRule(ImplausiblyAcceleratingVru, checkImplausiblyAcceleratingVru),
		NewRule(UndefinedCrossingVruFromCorner, checkUndefinedCrossingVruFromCorner),
		NewRule(ImplausiblePedestrian, checkImplausiblePedestrian),
		NewRule(ImplausiblePedestrianLRR, checkImplausiblePedestrianLRR),
		NewRule(ImplausibleCarCloseRange, checkImplausibleCarCloseRange),
		NewRule(ElevatedObject, checkElevatedObject),
		NewRule(Bridge, checkBridge),
		NewRule(CornerRadarStationaryFirstAssociation, checkCornerRadarStationaryFirstAssociation),
		NewRule(InconsistentAlpha, checkInconsistentAlpha),
	}
}

// Updater mutates the engine-owned state of an object before the checks run.
type Updater interface {
	Name() string
	Update(c *Context)
}

type updaterFunc struct {
	name string
	fn   func(*Context)
}

func (u updaterFunc) Name() string { return u.name }
func (u updaterFunc) Update(c *Context) { u.fn(c) }

// NewUpdater wraps a function as an Updater.
func NewUpdater(name string, fn func(*Context)) Updater {
	return updaterFunc{name: name, fn: fn}
}

// DefaultUpdaters returns the update phase in evaluation order.
func DefaultUpdaters() []Updater {
	return []Updater{
		NewUpdater("orientation_unreliable_count", updateOrientationUnreliableCount),
		NewUpdater("bad_sensor_based_innovation_count", updateBadSensorBasedInnoCount),
		NewUpdater("water_sprinklers_acc", clampWaterSprinklerProbabilities),
	}
}
