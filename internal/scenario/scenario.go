// Package scenario reads and writes hand-written or recorded evaluation
// inputs: the ego motion of one cycle plus a flat description of every track.
package scenario

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/trackguard/internal/config"
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/rules"
)

// maxFileSize bounds scenario files; a full cycle with 64 tracks is well below.
const maxFileSize = 4 * 1024 * 1024

// Scenario is one evaluation cycle.
type Scenario struct {
	ID      string       `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string       `json:"name" yaml:"name"`
	Ego     Ego          `json:"ego" yaml:"ego"`
	Objects []ObjectSpec `json:"objects" yaml:"objects"`

	// Calibration overrides the defaults for this scenario only.
	Calibration *config.Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// Ego is the ego motion of the cycle.
type Ego struct {
	VX      float32 `json:"vx" yaml:"vx"`
	YawRate float32 `json:"yaw_rate" yaml:"yaw_rate"`
	AX      float32 `json:"ax,omitempty" yaml:"ax,omitempty"`
	AY      float32 `json:"ay,omitempty" yaml:"ay,omitempty"`
}

// ChannelSpec are the update counters of one sensor channel.
type ChannelSpec struct {
	Total uint8 `json:"total" yaml:"total"`
	Since uint8 `json:"since" yaml:"since"`
}

// InnovationSpec is a range/angle residual pair.
type InnovationSpec struct {
	Range float32 `json:"range,omitempty" yaml:"range,omitempty"`
	Angle float32 `json:"angle,omitempty" yaml:"angle,omitempty"`
}

// ObjectSpec is the file form of a track. Channels and classification types
// are keyed by name, history entries list channel names, newest cycle first.
type ObjectSpec struct {
	ID uint16 `json:"id" yaml:"id"`

	X           float32 `json:"x" yaml:"x"`
	Y           float32 `json:"y" yaml:"y"`
	VX          float32 `json:"vx" yaml:"vx"`
	VY          float32 `json:"vy" yaml:"vy"`
	AX          float32 `json:"ax,omitempty" yaml:"ax,omitempty"`
	AY          float32 `json:"ay,omitempty" yaml:"ay,omitempty"`
	YawAngle    float32 `json:"yaw_angle,omitempty" yaml:"yaw_angle,omitempty"`
	FacingAngle float32 `json:"facing_angle,omitempty" yaml:"facing_angle,omitempty"`
	Length      float32 `json:"length,omitempty" yaml:"length,omitempty"`
	Width       float32 `json:"width,omitempty" yaml:"width,omitempty"`

	Channels             map[string]ChannelSpec `json:"channels,omitempty" yaml:"channels,omitempty"`
	CyclesSinceAnyUpdate uint8                  `json:"cycles_since_any_update,omitempty" yaml:"cycles_since_any_update,omitempty"`
	History              [][]string             `json:"history,omitempty" yaml:"history,omitempty"`

	RCS                     float32        `json:"rcs" yaml:"rcs"`
	Elevation               float32        `json:"elevation,omitempty" yaml:"elevation,omitempty"`
	ElevationValid          bool           `json:"elevation_valid,omitempty" yaml:"elevation_valid,omitempty"`
	AvgDxInnovation         float32        `json:"avg_dx_innovation,omitempty" yaml:"avg_dx_innovation,omitempty"`
	RadarInnovation         InnovationSpec `json:"radar_innovation,omitempty" yaml:"radar_innovation,omitempty"`
	VideoInnovation         InnovationSpec `json:"video_innovation,omitempty" yaml:"video_innovation,omitempty"`
	RadarRawAlphaInnovation float32        `json:"radar_raw_alpha_innovation,omitempty" yaml:"radar_raw_alpha_innovation,omitempty"`
	VideoRawAlphaInnovation float32        `json:"video_raw_alpha_innovation,omitempty" yaml:"video_raw_alpha_innovation,omitempty"`

	Classification      map[string]float32 `json:"classification,omitempty" yaml:"classification,omitempty"`
	Filter              string             `json:"filter,omitempty" yaml:"filter,omitempty"`
	PNonObstacleRCSOnly float32            `json:"p_non_obstacle_rcs_only,omitempty" yaml:"p_non_obstacle_rcs_only,omitempty"`

	ProbHasBeenObservedMoving float32 `json:"p_has_been_observed_moving,omitempty" yaml:"p_has_been_observed_moving,omitempty"`
	ProbIsCurrentlyMoving     float32 `json:"p_is_currently_moving,omitempty" yaml:"p_is_currently_moving,omitempty"`

	BadSensorBasedInnoCount          uint8   `json:"bad_sensor_based_inno_count,omitempty" yaml:"bad_sensor_based_inno_count,omitempty"`
	OrientationUnreliableCount       uint8   `json:"orientation_unreliable_count,omitempty" yaml:"orientation_unreliable_count,omitempty"`
	VyInconsistentCount              uint8   `json:"vy_inconsistent_count,omitempty" yaml:"vy_inconsistent_count,omitempty"`
	SplitCount                       int32   `json:"split_count,omitempty" yaml:"split_count,omitempty"`
	StoppingSplitCount               int32   `json:"stopping_split_count,omitempty" yaml:"stopping_split_count,omitempty"`
	StationaryLocationsOnlyCount     uint16  `json:"stationary_locations_only_count,omitempty" yaml:"stationary_locations_only_count,omitempty"`
	MicroDopplerCycles               uint8   `json:"micro_doppler_cycles,omitempty" yaml:"micro_doppler_cycles,omitempty"`
	ExpectedVrHighCount              uint8   `json:"expected_vr_high_count,omitempty" yaml:"expected_vr_high_count,omitempty"`
	NonPlausibleLocationCount        uint8   `json:"non_plausible_location_count,omitempty" yaml:"non_plausible_location_count,omitempty"`
	CyclesWithoutOrientationUpdate   uint8   `json:"cycles_without_orientation_update,omitempty" yaml:"cycles_without_orientation_update,omitempty"`
	ConsecutiveCyclesWithoutOncoming uint8   `json:"consecutive_cycles_without_oncoming,omitempty" yaml:"consecutive_cycles_without_oncoming,omitempty"`
	TotalCyclesWithOncoming          uint8   `json:"total_cycles_with_oncoming,omitempty" yaml:"total_cycles_with_oncoming,omitempty"`
	VyUnreliableAccumulated          float32 `json:"vy_unreliable_accumulated,omitempty" yaml:"vy_unreliable_accumulated,omitempty"`
	CyclesExisting                   uint16  `json:"cycles_existing" yaml:"cycles_existing"`
	TransferredFromSeparationCycle   uint16  `json:"transferred_from_separation_cycle,omitempty" yaml:"transferred_from_separation_cycle,omitempty"`

	VideoHandle                               uint16  `json:"video_handle,omitempty" yaml:"video_handle,omitempty"`
	VideoHandleValid                          bool    `json:"video_handle_valid,omitempty" yaml:"video_handle_valid,omitempty"`
	WExistVideo                               float32 `json:"w_exist_video,omitempty" yaml:"w_exist_video,omitempty"`
	VideoInvTTC                               float32 `json:"video_inv_ttc,omitempty" yaml:"video_inv_ttc,omitempty"`
	CreatedByVideoWithHighVy                  bool    `json:"created_by_video_with_high_vy,omitempty" yaml:"created_by_video_with_high_vy,omitempty"`
	CyclesSinceVideoUpdateWithAngularVelocity uint8   `json:"cycles_since_video_update_with_angular_velocity,omitempty" yaml:"cycles_since_video_update_with_angular_velocity,omitempty"`

	SuppressedUntilNextVideoUpdate           bool `json:"suppressed_until_next_video_update,omitempty" yaml:"suppressed_until_next_video_update,omitempty"`
	SuppressedByVideoOTC                     bool `json:"suppressed_by_video_otc,omitempty" yaml:"suppressed_by_video_otc,omitempty"`
	UpdatedWithStatLocHighMDopplerOutgoingVr bool `json:"updated_with_stat_loc_high_m_doppler_outgoing_vr,omitempty" yaml:"updated_with_stat_loc_high_m_doppler_outgoing_vr,omitempty"`
	OrientationImplausibleVsVideo            bool `json:"orientation_implausible_vs_video,omitempty" yaml:"orientation_implausible_vs_video,omitempty"`
}

// Load reads a scenario file. JSON and YAML are accepted, selected by
// extension. A scenario without ID gets a fresh one.
func Load(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if !isSupportedExt(ext) {
		return nil, errors.Errorf("scenario file must have .json, .yaml or .yml extension, got %q", ext)
	}
	fi, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "can't stat scenario file")
	}
	if fi.Size() > maxFileSize {
		return nil, errors.Errorf("scenario file too large: %d bytes (max %d)", fi.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "can't read scenario file")
	}

	s := &Scenario{}
	if ext == ".json" {
		err = json.Unmarshal(data, s)
	} else {
		err = yaml.Unmarshal(data, s)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode scenario %s", cleanPath)
	}
	if s.Calibration != nil {
		if err := s.Calibration.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid scenario calibration")
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	monitoring.Diagf("scenario %q (%s): %d objects loaded from %s", s.Name, s.ID, len(s.Objects), cleanPath)
	return s, nil
}

// Save writes s to path, encoding by extension.
func (s *Scenario) Save(path string) error {
	ext := filepath.Ext(path)
	if !isSupportedExt(ext) {
		return errors.Errorf("scenario file must have .json, .yaml or .yml extension, got %q", ext)
	}
	var (
		data []byte
		err  error
	)
	if ext == ".json" {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return errors.Wrapf(err, "can't encode scenario %q", s.Name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "can't write scenario %s", path)
	}
	return nil
}

// Params builds the rule parameters for the scenario: the given base
// calibration (defaults if nil) overlaid with the scenario override.
func (s *Scenario) Params(base *config.Calibration) (*rules.Params, error) {
	if base == nil {
		base = config.EmptyCalibration()
	}
	merged := base
	if s.Calibration != nil {
		merged = base.Merge(s.Calibration)
	}
	p, err := rules.ParamsFromCalibration(merged)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %q calibration", s.Name)
	}
	return p, nil
}

func isSupportedExt(ext string) bool {
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}
