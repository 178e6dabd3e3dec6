// Package frame defines the snapshot data model produced by parsing one
// measurement datagram, and the parser that builds it.
package frame

// Handedness identifies which hand a fingertracking record describes.
type Handedness int

const (
	Left Handedness = iota
	Right
)

// HybridState is the tracking confidence of an inertial/hybrid body.
type HybridState int

const (
	// StateNotTracked means the body is currently not tracked at all.
	StateNotTracked HybridState = iota
	// StateInertialOnly means the body is tracked by inertial sensors only.
	StateInertialOnly
	// StateHybridDrift means hybrid tracking with potential drift.
	StateHybridDrift
	// StateHybridCorrected means hybrid tracking, fully corrected.
	StateHybridCorrected
)

// ExtendedTimestamp is the seconds+microseconds pair carried by a "ts2"
// record.
type ExtendedTimestamp struct {
	Seconds      int64
	Microseconds int64
}

// Header carries the per-datagram metadata that precedes the per-kind
// record groups.
type Header struct {
	FrameCounter uint32
	// Timestamp is in seconds; -1 if the datagram carried no "ts" record.
	Timestamp float64
	// TimestampExt is nil if the datagram carried no "ts2" record.
	TimestampExt *ExtendedTimestamp
	// LatencyUS is 0 if the datagram carried no "lat" record.
	LatencyUS int
}

// Pose is the position and orientation shared by every body-like record
// kind. Rotation is stored column-major, exactly as received.
type Pose struct {
	ID       int
	Quality  float64
	Location [3]float64
	Rotation [9]float64
}

// IsTracked reports whether the pose carries a valid measurement.
// Quality < 0 means "not tracked"; Location/Rotation are then the
// zeroed/identity default rather than meaningful data.
func (p Pose) IsTracked() bool {
	return p.Quality >= 0
}

// IdentityRotation is the default rotation matrix used for untracked
// poses, column-major.
var IdentityRotation = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Body is a standard 6DOF rigid body ("6d" record).
type Body struct {
	Pose
}

// Flystick is a hand-held 6DOF device with buttons and joystick axes
// ("6df"/"6df2" records).
type Flystick struct {
	Pose
	Buttons   []bool
	Joysticks []float64
}

// MeasurementTool is a 6DOF tool, optionally with tip radius and buttons
// ("6dmt"/"6dmt2"/"6dmt3" records).
type MeasurementTool struct {
	Pose
	// TipRadius is nil when the datagram's variant omitted it.
	TipRadius *float64
	Buttons   []bool
}

// MeasurementReference is a 6DOF reference body ("6dmtr" records).
type MeasurementReference struct {
	Pose
}

// Finger is one finger of a fingertracking hand.
type Finger struct {
	Pose
	TipRadius         float64
	PhalanxLength     [3]float64
	InterPhalanxAngle [2]float64
}

// Hand is a fingertracking hand model ("gl" records).
type Hand struct {
	Pose
	Handedness Handedness
	Fingers    []Finger
}

// Marker is a single reflective 3DOF point ("3d" records). Markers are
// kept in declared order, not indexed densely by id: ids may be sparse.
type Marker struct {
	ID       int
	Quality  float64
	Location [3]float64
}

// HumanJoint is one joint of a human model.
type HumanJoint struct {
	Pose
	// Angles holds Euler angles if the datagram carried them, else nil.
	Angles []float64
}

// Human is a human body model ("human" records), indexed by ID.
type Human struct {
	ID     int
	Joints []HumanJoint
}

// HybridBody is an inertial/hybrid body ("6di" records). Ids may be
// sparse, like markers.
type HybridBody struct {
	ID       int
	State    HybridState
	Error    float64
	Location [3]float64
	Rotation [9]float64
}

// CameraStatus is one camera's entry within a "status" record.
type CameraStatus struct {
	ID                 int
	NumReflections     int
	NumReflectionsUsed int
	MaxIntensity       int
}

// Status is the optional system status record.
type Status struct {
	NumCameras               int
	NumTrackedBodies         int
	NumTrackedMarkers        int
	NumCameraErrorMessages   int
	NumCameraWarningMessages int
	NumOtherErrorMessages    int
	NumOtherWarningMessages  int
	NumInfoMessages          int
	Cameras                  []CameraStatus
}

// CameraByID returns the camera status entry for the given id and
// whether it was found.
func (s *Status) CameraByID(id int) (CameraStatus, bool) {
	for _, c := range s.Cameras {
		if c.ID == id {
			return c, true
		}
	}
	return CameraStatus{}, false
}

// Snapshot is the immutable result of parsing one measurement datagram.
// It is never mutated after construction; a session publishes a fresh
// Snapshot atomically on each successful parse.
type Snapshot struct {
	Header

	Bodies                []Body
	Flysticks             []Flystick
	MeasurementTools      []MeasurementTool
	MeasurementReferences []MeasurementReference
	Hands                 []Hand
	Markers               []Marker
	Humans                []Human
	HybridBodies          []HybridBody

	// Status is nil if the datagram carried no "status" record.
	Status *Status
}

// NumBodies returns the number of standard 6DOF bodies.
func (s *Snapshot) NumBodies() int { return len(s.Bodies) }

// Body returns the body at index i and whether i was in range.
func (s *Snapshot) Body(i int) (Body, bool) {
	if i < 0 || i >= len(s.Bodies) {
		return Body{}, false
	}
	return s.Bodies[i], true
}

// NumFlysticks returns the number of Flysticks.
func (s *Snapshot) NumFlysticks() int { return len(s.Flysticks) }

// Flystick returns the Flystick at index i and whether i was in range.
func (s *Snapshot) Flystick(i int) (Flystick, bool) {
	if i < 0 || i >= len(s.Flysticks) {
		return Flystick{}, false
	}
	return s.Flysticks[i], true
}

// NumMeasurementTools returns the number of 6DOF measurement tools.
func (s *Snapshot) NumMeasurementTools() int { return len(s.MeasurementTools) }

// MeasurementTool returns the measurement tool at index i and whether i
// was in range.
func (s *Snapshot) MeasurementTool(i int) (MeasurementTool, bool) {
	if i < 0 || i >= len(s.MeasurementTools) {
		return MeasurementTool{}, false
	}
	return s.MeasurementTools[i], true
}

// NumMeasurementReferences returns the number of 6DOF reference bodies.
func (s *Snapshot) NumMeasurementReferences() int { return len(s.MeasurementReferences) }

// MeasurementReference returns the reference body at index i and
// whether i was in range.
func (s *Snapshot) MeasurementReference(i int) (MeasurementReference, bool) {
	if i < 0 || i >= len(s.MeasurementReferences) {
		return MeasurementReference{}, false
	}
	return s.MeasurementReferences[i], true
}

// NumHands returns the number of fingertracking hands.
func (s *Snapshot) NumHands() int { return len(s.Hands) }

// Hand returns the fingertracking hand at index i and whether i was in
// range.
func (s *Snapshot) Hand(i int) (Hand, bool) {
	if i < 0 || i >= len(s.Hands) {
		return Hand{}, false
	}
	return s.Hands[i], true
}

// NumMarkers returns the number of single markers.
func (s *Snapshot) NumMarkers() int { return len(s.Markers) }

// Marker returns the marker at index i and whether i was in range.
func (s *Snapshot) Marker(i int) (Marker, bool) {
	if i < 0 || i >= len(s.Markers) {
		return Marker{}, false
	}
	return s.Markers[i], true
}

// NumHumans returns the number of human models.
func (s *Snapshot) NumHumans() int { return len(s.Humans) }

// Human returns the human model at index i and whether i was in range.
func (s *Snapshot) Human(i int) (Human, bool) {
	if i < 0 || i >= len(s.Humans) {
		return Human{}, false
	}
	return s.Humans[i], true
}

// NumHybridBodies returns the number of inertial/hybrid bodies.
func (s *Snapshot) NumHybridBodies() int { return len(s.HybridBodies) }

// HybridBody returns the hybrid body at index i and whether i was in
// range.
func (s *Snapshot) HybridBody(i int) (HybridBody, bool) {
	if i < 0 || i >= len(s.HybridBodies) {
		return HybridBody{}, false
	}
	return s.HybridBodies[i], true
}
