package track

import "fmt"

// ObjectType is a node of the classification tree.
type ObjectType uint8

const (
	TypeUnknown ObjectType = iota
	TypeObstacle
	TypeObstacleMobile
	TypeFourPlusWheeler
	TypeCar
	TypeTruck
	TypeTwoWheeler
	TypeBicycle
	TypeMotorcycle
	TypePedestrian
	NumObjectTypes
)

var typeNames = [NumObjectTypes]string{
	"unknown",
	"obstacle",
	"obstacle_mobile",
	"four_plus_wheeler",
	"car",
	"truck",
	"two_wheeler",
	"bicycle",
	"motorcycle",
	"pedestrian",
}

func (t ObjectType) String() string {
	if t < NumObjectTypes {
		return typeNames[t]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t ObjectType) MarshalText() ([]byte, error) {
	if t >= NumObjectTypes {
		return nil, fmt.Errorf("invalid object type %d", uint8(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ObjectType) UnmarshalText(b []byte) error {
	for i, n := range typeNames {
		if n == string(b) {
			*t = ObjectType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown object type %q", string(b))
}

// Classification is the per-type probability distribution of a track.
type Classification struct {
	Probs [NumObjectTypes]float32
}

// Prob returns the probability of type t.
func (c *Classification) Prob(t ObjectType) float32 {
	if t >= NumObjectTypes {
		return 0
	}
	return c.Probs[t]
}

// MostProbable returns the type with the highest probability. Ties resolve to
// the earlier type, so an all-zero distribution is TypeUnknown.
func (c *Classification) MostProbable() ObjectType {
	best := TypeUnknown
	for t := TypeUnknown + 1; t < NumObjectTypes; t++ {
		if c.Probs[t] > c.Probs[best] {
			best = t
		}
	}
	return best
}

// Is reports whether the most probable type is t.
func (c *Classification) Is(t ObjectType) bool {
	return c.MostProbable() == t
}

// IsFourPlusWheelerOrSubtype reports whether the most probable type is a
// four-plus-wheeler, car or truck.
func (c *Classification) IsFourPlusWheelerOrSubtype() bool {
	switch c.MostProbable() {
	case TypeFourPlusWheeler, TypeCar, TypeTruck:
		return true
	}
	return false
}

// IsVru reports whether the most probable type is a vulnerable road user.
func (c *Classification) IsVru() bool {
	switch c.MostProbable() {
	case TypePedestrian, TypeTwoWheeler, TypeBicycle, TypeMotorcycle:
		return true
	}
	return false
}

// IsObstacleLike reports whether the most probable type is unknown, obstacle
// or mobile obstacle.
func (c *Classification) IsObstacleLike() bool {
	switch c.MostProbable() {
	case TypeUnknown, TypeObstacle, TypeObstacleMobile:
		return true
	}
	return false
}

// Only returns a distribution with all mass on t.
func Only(t ObjectType) Classification {
	var c Classification
	if t < NumObjectTypes {
		c.Probs[t] = 1
	}
	return c
}
