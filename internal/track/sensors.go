package track

import "fmt"

// Channel identifies a sensor channel contributing to a track.
type Channel uint8

const (
	FrontCenterRadar Channel = iota
	FrontLeftCornerRadar
	FrontRightCornerRadar
	FrontCenterVideo
	TechRadar // aggregate of all radar channels
	TechVideo // aggregate of all video channels
	NumChannels

	// NoChannel selects no contributor in history queries.
	NoChannel Channel = 0xFF
)

var channelNames = [NumChannels]string{
	"front_center_radar",
	"front_left_corner_radar",
	"front_right_corner_radar",
	"front_center_video",
	"tech_radar",
	"tech_video",
}

func (c Channel) String() string {
	if c < NumChannels {
		return channelNames[c]
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler so channels can key maps in
// scenario files.
func (c Channel) MarshalText() ([]byte, error) {
	if c >= NumChannels {
		return nil, fmt.Errorf("invalid channel %d", uint8(c))
	}
	return []byte(channelNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(b []byte) error {
	for i, n := range channelNames {
		if n == string(b) {
			*c = Channel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sensor channel %q", string(b))
}

// ChannelMask is a set of leaf channels that contributed in one cycle.
type ChannelMask uint8

const (
	radarLeaves = ChannelMask(1<<FrontCenterRadar | 1<<FrontLeftCornerRadar | 1<<FrontRightCornerRadar)
	videoLeaves = ChannelMask(1 << FrontCenterVideo)
	allLeaves   = radarLeaves | videoLeaves
)

// Mask returns the leaf channels that c stands for. Technology channels cover
// all leaves of that technology; NoChannel covers none.
func (c Channel) Mask() ChannelMask {
	switch c {
	case TechRadar:
		return radarLeaves
	case TechVideo:
		return videoLeaves
	case FrontCenterRadar, FrontLeftCornerRadar, FrontRightCornerRadar, FrontCenterVideo:
		return ChannelMask(1 << c)
	default:
		return 0
	}
}

// MaskOf builds a mask from leaf or technology channels.
func MaskOf(channels ...Channel) ChannelMask {
	var m ChannelMask
	for _, c := range channels {
		m |= c.Mask()
	}
	return m
}

// Channels lists the leaf channels in m.
func (m ChannelMask) Channels() []Channel {
	var out []Channel
	for c := FrontCenterRadar; c <= FrontCenterVideo; c++ {
		if m&c.Mask() != 0 {
			out = append(out, c)
		}
	}
	return out
}

// ChannelStats are the update counters of one channel.
type ChannelStats struct {
	TotalUpdates      uint8
	CyclesSinceUpdate uint8
}

// HistoryLength is the number of past cycles kept in a History.
const HistoryLength = 64

// History is a ring of per-cycle contributor masks, newest first.
type History struct {
	masks [HistoryLength]ChannelMask
	head  int
	n     int
}

// Push records the contributors of the cycle that just ended.
func (h *History) Push(m ChannelMask) {
	h.head = (h.head + 1) % HistoryLength
	h.masks[h.head] = m
	if h.n < HistoryLength {
		h.n++
	}
}

// Len is the number of recorded cycles.
func (h *History) Len() int { return h.n }

// At returns the mask recorded i cycles ago, 0 being the newest entry.
func (h *History) At(i int) ChannelMask {
	if i < 0 || i >= h.n {
		return 0
	}
	return h.masks[(h.head-i+HistoryLength)%HistoryLength]
}

// SensorFusion holds the per-channel evidence of a track.
type SensorFusion struct {
	Channels             [NumChannels]ChannelStats
	CyclesSinceAnyUpdate uint8
	History              History
}

// Total is the number of updates channel c contributed.
func (s *SensorFusion) Total(c Channel) uint8 {
	if c >= NumChannels {
		return 0
	}
	return s.Channels[c].TotalUpdates
}

// SinceLast is the number of cycles since channel c last contributed.
func (s *SensorFusion) SinceLast(c Channel) uint8 {
	if c >= NumChannels {
		return 0
	}
	return s.Channels[c].CyclesSinceUpdate
}

// IsOnlyUpdatedBy reports whether c contributed and no leaf channel outside
// c's technology group ever did.
func (s *SensorFusion) IsOnlyUpdatedBy(c Channel) bool {
	if s.Total(c) == 0 {
		return false
	}
	others := allLeaves &^ c.Mask()
	for l := FrontCenterRadar; l <= FrontCenterVideo; l++ {
		if others&l.Mask() != 0 && s.Channels[l].TotalUpdates > 0 {
			return false
		}
	}
	return true
}

// OnlyUpdatedByInLastN reports whether, within the last n recorded cycles,
// only c's group contributed and it did so at least once.
func (s *SensorFusion) OnlyUpdatedByInLastN(c Channel, n int) bool {
	own := c.Mask()
	if own == 0 {
		return false
	}
	seen := false
	for i := 0; i < n && i < s.History.Len(); i++ {
		m := s.History.At(i)
		if m&^own != 0 {
			return false
		}
		if m != 0 {
			seen = true
		}
	}
	return seen
}

// SingleUpdateByOrNone counts the last n recorded cycles in which nothing
// contributed or only c's group contributed. NoChannel counts only cycles
// without any update.
func (s *SensorFusion) SingleUpdateByOrNone(c Channel, n int) uint8 {
	own := c.Mask()
	var count uint8
	for i := 0; i < n && i < s.History.Len(); i++ {
		m := s.History.At(i)
		if m == 0 || (own != 0 && m&^own == 0) {
			count++
		}
	}
	return count
}

const (
	goodFusionMinUpdates   = 5
	goodFusionMaxStaleness = 2
)

// IsGoodQualityFused reports whether both channels are established and
// recently updated.
func (s *SensorFusion) IsGoodQualityFused(a, b Channel) bool {
	return s.Total(a) >= goodFusionMinUpdates && s.Total(b) >= goodFusionMinUpdates &&
		s.SinceLast(a) <= goodFusionMaxStaleness && s.SinceLast(b) <= goodFusionMaxStaleness
}

// IsTrustworthy reports whether c has contributed within the last n cycles.
func (s *SensorFusion) IsTrustworthy(c Channel, n uint8) bool {
	return s.Total(c) > 0 && s.SinceLast(c) < n
}
