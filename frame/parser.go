package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is returned when a datagram cannot be turned into a Snapshot.
// It carries the tag of the record being parsed (if any) and a human
// description; no partial Snapshot is ever returned alongside it.
type ParseError struct {
	Tag     string
	Message string
}

func (e *ParseError) Error() string {
	if e.Tag == "" {
		return "frame: " + e.Message
	}
	return fmt.Sprintf("frame: %s: %s", e.Tag, e.Message)
}

func parseErrf(tag, format string, args ...any) *ParseError {
	return &ParseError{Tag: tag, Message: fmt.Sprintf(format, args...)}
}

// Parse converts a single ASCII measurement datagram into a Snapshot.
// Lines are LF-terminated; within a line, records are whitespace
// separated. Unknown leading tags are skipped for the remainder of their
// line without failing the datagram (forward compatibility, per the
// wire grammar's append-only evolution). Malformed "ts", "ts2", "lat"
// and "status" records are treated as absent rather than fatal; every
// other structural problem (bad count, non-numeric required field,
// truncation mid-group) fails the whole datagram.
func Parse(data []byte) (*Snapshot, error) {
	snap := &Snapshot{
		Header: Header{Timestamp: -1},
	}

	text := string(data)
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		toks := tokenizeLine(line)
		c := &cursor{toks: toks}

		for c.pos < len(c.toks) {
			tag, _ := c.next()

			switch tag {
			case "fr":
				v, err := c.readUint32()
				if err != nil {
					return nil, parseErrf(tag, "bad frame counter: %v", err)
				}
				snap.FrameCounter = v

			case "ts":
				if v, err := c.readFloat(); err == nil {
					snap.Timestamp = v
				} else {
					c.skipToLineEnd()
				}

			case "ts2":
				sec, err1 := c.readInt()
				usec, err2 := c.readInt()
				if err1 == nil && err2 == nil {
					snap.TimestampExt = &ExtendedTimestamp{Seconds: int64(sec), Microseconds: int64(usec)}
				} else {
					c.skipToLineEnd()
				}

			case "lat":
				if v, err := c.readInt(); err == nil {
					snap.LatencyUS = v
				} else {
					c.skipToLineEnd()
				}

			case "6d":
				if err := parseBodies(c, &snap.Bodies); err != nil {
					return nil, err
				}

			case "6df2", "6df":
				if err := parseFlysticks(c, &snap.Flysticks); err != nil {
					return nil, err
				}

			case "6dmt":
				if err := parseMeasurementTools(c, &snap.MeasurementTools, false, false); err != nil {
					return nil, err
				}

			case "6dmt2":
				if err := parseMeasurementTools(c, &snap.MeasurementTools, true, false); err != nil {
					return nil, err
				}

			case "6dmt3":
				if err := parseMeasurementTools(c, &snap.MeasurementTools, true, true); err != nil {
					return nil, err
				}

			case "6dmtr":
				if err := parseMeasurementReferences(c, &snap.MeasurementReferences); err != nil {
					return nil, err
				}

			case "gl":
				if err := parseHands(c, &snap.Hands); err != nil {
					return nil, err
				}

			case "3d":
				if err := parseMarkers(c, &snap.Markers); err != nil {
					return nil, err
				}

			case "human":
				if err := parseHumans(c, &snap.Humans); err != nil {
					return nil, err
				}

			case "6di":
				if err := parseHybridBodies(c, &snap.HybridBodies); err != nil {
					return nil, err
				}

			case "status":
				if st, err := parseStatus(c); err == nil {
					snap.Status = st
				} else {
					c.skipToLineEnd()
				}

			default:
				// Unknown tag: forward-compatibility skip for the rest of
				// this line (records never span multiple lines).
				c.skipToLineEnd()
			}
		}
	}

	return snap, nil
}

// normalizePose enforces the "quality < 0 implies zeroed/identity
// default" invariant regardless of what the controller actually sent.
func normalizePose(p *Pose) {
	if p.Quality < 0 {
		p.Location = [3]float64{}
		p.Rotation = IdentityRotation
	}
}

func parseBodies(c *cursor, out *[]Body) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("6d", "bad count: %v", err)
	}
	bodies := make([]Body, 0, count)
	for i := 0; i < count; i++ {
		id, qu, err := c.readIDQuality()
		if err != nil {
			return parseErrf("6d", "group %d: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("6d", "group %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("6d", "group %d: rotation: %v", i, err)
		}
		p := Pose{ID: id, Quality: qu, Location: loc, Rotation: rot}
		normalizePose(&p)
		bodies = append(bodies, Body{Pose: p})
	}
	*out = bodies
	return nil
}

func parseFlysticks(c *cursor, out *[]Flystick) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("6df", "bad count: %v", err)
	}
	sticks := make([]Flystick, 0, count)
	for i := 0; i < count; i++ {
		if err := c.expect("["); err != nil {
			return parseErrf("6df", "group %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return parseErrf("6df", "group %d: id: %v", i, err)
		}
		qu, err := c.readFloat()
		if err != nil {
			return parseErrf("6df", "group %d: quality: %v", i, err)
		}
		// Optional "nbutton njoystick" fields (6df2 only); ignored for
		// validation purposes, the actual array lengths are taken from
		// the bracket contents themselves.
		for c.pos < len(c.toks) && c.toks[c.pos] != "]" {
			if _, err := c.next(); err != nil {
				break
			}
		}
		if err := c.expect("]"); err != nil {
			return parseErrf("6df", "group %d: header close: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("6df", "group %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("6df", "group %d: rotation: %v", i, err)
		}
		buttonVals, err := c.readBracketFloats()
		if err != nil {
			return parseErrf("6df", "group %d: buttons: %v", i, err)
		}
		joysticks, err := c.readBracketFloats()
		if err != nil {
			return parseErrf("6df", "group %d: joysticks: %v", i, err)
		}

		buttons := make([]bool, len(buttonVals))
		for j, v := range buttonVals {
			buttons[j] = v != 0
		}

		p := Pose{ID: id, Quality: qu, Location: loc, Rotation: rot}
		normalizePose(&p)
		sticks = append(sticks, Flystick{Pose: p, Buttons: buttons, Joysticks: joysticks})
	}
	*out = sticks
	return nil
}

func parseMeasurementTools(c *cursor, out *[]MeasurementTool, hasRadius, hasButtons bool) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("6dmt", "bad count: %v", err)
	}
	tools := make([]MeasurementTool, 0, count)
	for i := 0; i < count; i++ {
		if err := c.expect("["); err != nil {
			return parseErrf("6dmt", "group %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return parseErrf("6dmt", "group %d: id: %v", i, err)
		}
		qu, err := c.readFloat()
		if err != nil {
			return parseErrf("6dmt", "group %d: quality: %v", i, err)
		}
		var radius *float64
		if hasRadius {
			r, err := c.readFloat()
			if err != nil {
				return parseErrf("6dmt", "group %d: tip radius: %v", i, err)
			}
			radius = &r
		}
		if err := c.expect("]"); err != nil {
			return parseErrf("6dmt", "group %d: header close: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("6dmt", "group %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("6dmt", "group %d: rotation: %v", i, err)
		}
		var buttons []bool
		if hasButtons {
			vals, err := c.readBracketFloats()
			if err != nil {
				return parseErrf("6dmt", "group %d: buttons: %v", i, err)
			}
			buttons = make([]bool, len(vals))
			for j, v := range vals {
				buttons[j] = v != 0
			}
		}

		p := Pose{ID: id, Quality: qu, Location: loc, Rotation: rot}
		normalizePose(&p)
		tools = append(tools, MeasurementTool{Pose: p, TipRadius: radius, Buttons: buttons})
	}
	*out = tools
	return nil
}

func parseMeasurementReferences(c *cursor, out *[]MeasurementReference) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("6dmtr", "bad count: %v", err)
	}
	refs := make([]MeasurementReference, 0, count)
	for i := 0; i < count; i++ {
		id, qu, err := c.readIDQuality()
		if err != nil {
			return parseErrf("6dmtr", "group %d: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("6dmtr", "group %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("6dmtr", "group %d: rotation: %v", i, err)
		}
		p := Pose{ID: id, Quality: qu, Location: loc, Rotation: rot}
		normalizePose(&p)
		refs = append(refs, MeasurementReference{Pose: p})
	}
	*out = refs
	return nil
}

func parseHands(c *cursor, out *[]Hand) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("gl", "bad count: %v", err)
	}
	hands := make([]Hand, 0, count)
	for i := 0; i < count; i++ {
		if err := c.expect("["); err != nil {
			return parseErrf("gl", "hand %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return parseErrf("gl", "hand %d: id: %v", i, err)
		}
		qu, err := c.readFloat()
		if err != nil {
			return parseErrf("gl", "hand %d: quality: %v", i, err)
		}
		lr, err := c.readInt()
		if err != nil {
			return parseErrf("gl", "hand %d: handedness: %v", i, err)
		}
		nfinger, err := c.readInt()
		if err != nil {
			return parseErrf("gl", "hand %d: finger count: %v", i, err)
		}
		if err := c.expect("]"); err != nil {
			return parseErrf("gl", "hand %d: header close: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("gl", "hand %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("gl", "hand %d: rotation: %v", i, err)
		}

		handedness := Left
		if lr != 0 {
			handedness = Right
		}

		fingers := make([]Finger, 0, nfinger)
		for f := 0; f < nfinger; f++ {
			floc, err := c.readBracketVec3()
			if err != nil {
				return parseErrf("gl", "hand %d finger %d: location: %v", i, f, err)
			}
			frot, err := c.readBracketVec9()
			if err != nil {
				return parseErrf("gl", "hand %d finger %d: rotation: %v", i, f, err)
			}
			geom, err := c.readBracketFloatsN(6)
			if err != nil {
				return parseErrf("gl", "hand %d finger %d: geometry: %v", i, f, err)
			}
			fingers = append(fingers, Finger{
				Pose:              Pose{Location: floc, Rotation: frot, Quality: qu},
				TipRadius:         geom[0],
				PhalanxLength:     [3]float64{geom[1], geom[2], geom[3]},
				InterPhalanxAngle: [2]float64{geom[4], geom[5]},
			})
		}

		p := Pose{ID: id, Quality: qu, Location: loc, Rotation: rot}
		normalizePose(&p)
		hands = append(hands, Hand{Pose: p, Handedness: handedness, Fingers: fingers})
	}
	*out = hands
	return nil
}

func parseMarkers(c *cursor, out *[]Marker) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("3d", "bad count: %v", err)
	}
	markers := make([]Marker, 0, count)
	for i := 0; i < count; i++ {
		id, qu, err := c.readIDQuality()
		if err != nil {
			return parseErrf("3d", "group %d: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("3d", "group %d: location: %v", i, err)
		}
		m := Marker{ID: id, Quality: qu, Location: loc}
		if qu < 0 {
			m.Location = [3]float64{}
		}
		markers = append(markers, m)
	}
	*out = markers
	return nil
}

func parseHumans(c *cursor, out *[]Human) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("human", "bad count: %v", err)
	}
	humans := make([]Human, 0, count)
	for i := 0; i < count; i++ {
		if err := c.expect("["); err != nil {
			return parseErrf("human", "human %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return parseErrf("human", "human %d: id: %v", i, err)
		}
		njoint, err := c.readInt()
		if err != nil {
			return parseErrf("human", "human %d: joint count: %v", i, err)
		}
		if err := c.expect("]"); err != nil {
			return parseErrf("human", "human %d: header close: %v", i, err)
		}

		joints := make([]HumanJoint, 0, njoint)
		for j := 0; j < njoint; j++ {
			jid, jqu, err := c.readIDQuality()
			if err != nil {
				return parseErrf("human", "human %d joint %d: %v", i, j, err)
			}
			loc, err := c.readBracketVec3()
			if err != nil {
				return parseErrf("human", "human %d joint %d: location: %v", i, j, err)
			}
			rot, err := c.readBracketVec9()
			if err != nil {
				return parseErrf("human", "human %d joint %d: rotation: %v", i, j, err)
			}
			angles, err := c.readBracketFloats()
			if err != nil {
				return parseErrf("human", "human %d joint %d: angles: %v", i, j, err)
			}
			p := Pose{ID: jid, Quality: jqu, Location: loc, Rotation: rot}
			normalizePose(&p)
			joints = append(joints, HumanJoint{Pose: p, Angles: angles})
		}
		humans = append(humans, Human{ID: id, Joints: joints})
	}
	*out = humans
	return nil
}

func parseHybridBodies(c *cursor, out *[]HybridBody) error {
	count, err := c.readInt()
	if err != nil {
		return parseErrf("6di", "bad count: %v", err)
	}
	bodies := make([]HybridBody, 0, count)
	for i := 0; i < count; i++ {
		if err := c.expect("["); err != nil {
			return parseErrf("6di", "group %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return parseErrf("6di", "group %d: id: %v", i, err)
		}
		state, err := c.readInt()
		if err != nil {
			return parseErrf("6di", "group %d: state: %v", i, err)
		}
		errv, err := c.readFloat()
		if err != nil {
			return parseErrf("6di", "group %d: error: %v", i, err)
		}
		if err := c.expect("]"); err != nil {
			return parseErrf("6di", "group %d: header close: %v", i, err)
		}
		loc, err := c.readBracketVec3()
		if err != nil {
			return parseErrf("6di", "group %d: location: %v", i, err)
		}
		rot, err := c.readBracketVec9()
		if err != nil {
			return parseErrf("6di", "group %d: rotation: %v", i, err)
		}
		bodies = append(bodies, HybridBody{
			ID:       id,
			State:    HybridState(state),
			Error:    errv,
			Location: loc,
			Rotation: rot,
		})
	}
	*out = bodies
	return nil
}

// parseStatus reads a "status" record. The exact scalar-counter order is
// not pinned down by the wire grammar table; this follows the field
// order declared by the original SDK's status class (cameras, tracked
// bodies, tracked markers, then the five message counters), followed by
// a camera count and that many bracket groups.
func parseStatus(c *cursor) (*Status, error) {
	vals := make([]int, 8)
	for i := range vals {
		v, err := c.readInt()
		if err != nil {
			return nil, parseErrf("status", "counter %d: %v", i, err)
		}
		vals[i] = v
	}
	numCams, err := c.readInt()
	if err != nil {
		return nil, parseErrf("status", "camera count: %v", err)
	}

	st := &Status{
		NumCameras:               vals[0],
		NumTrackedBodies:         vals[1],
		NumTrackedMarkers:        vals[2],
		NumCameraErrorMessages:   vals[3],
		NumCameraWarningMessages: vals[4],
		NumOtherErrorMessages:    vals[5],
		NumOtherWarningMessages:  vals[6],
		NumInfoMessages:          vals[7],
		Cameras:                  make([]CameraStatus, 0, numCams),
	}

	for i := 0; i < numCams; i++ {
		if err := c.expect("["); err != nil {
			return nil, parseErrf("status", "camera %d: header: %v", i, err)
		}
		id, err := c.readInt()
		if err != nil {
			return nil, parseErrf("status", "camera %d: id: %v", i, err)
		}
		numRefl, err := c.readInt()
		if err != nil {
			return nil, parseErrf("status", "camera %d: numRefl: %v", i, err)
		}
		numUsed, err := c.readInt()
		if err != nil {
			return nil, parseErrf("status", "camera %d: numUsed: %v", i, err)
		}
		maxIntensity, err := c.readInt()
		if err != nil {
			return nil, parseErrf("status", "camera %d: maxIntensity: %v", i, err)
		}
		if err := c.expect("]"); err != nil {
			return nil, parseErrf("status", "camera %d: close: %v", i, err)
		}
		st.Cameras = append(st.Cameras, CameraStatus{
			ID:                 id,
			NumReflections:     numRefl,
			NumReflectionsUsed: numUsed,
			MaxIntensity:       maxIntensity,
		})
	}

	return st, nil
}

// tokenizeLine splits one line into whitespace-delimited words, treating
// '[' and ']' as standalone tokens regardless of adjacent whitespace.
func tokenizeLine(line string) []string {
	var toks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, buf.String())
			buf.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '[' || r == ']':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()

	return toks
}

// cursor walks a token slice for one line.
type cursor struct {
	toks []string
	pos  int
}

func (c *cursor) next() (string, error) {
	if c.pos >= len(c.toks) {
		return "", fmt.Errorf("truncated")
	}
	t := c.toks[c.pos]
	c.pos++
	return t, nil
}

func (c *cursor) expect(want string) error {
	t, err := c.next()
	if err != nil {
		return err
	}
	if t != want {
		return fmt.Errorf("expected %q, got %q", want, t)
	}
	return nil
}

func (c *cursor) readInt() (int, error) {
	t, err := c.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(t)
}

func (c *cursor) readUint32() (uint32, error) {
	t, err := c.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(t, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// readFloat parses with strconv.ParseFloat, which always expects '.' as
// the decimal separator whatever the host locale.
func (c *cursor) readFloat() (float64, error) {
	t, err := c.next()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(t, 64)
}

// readIDQuality reads the common "[id qu]" header used by 6d, 6dmtr and
// 3d records.
func (c *cursor) readIDQuality() (int, float64, error) {
	if err := c.expect("["); err != nil {
		return 0, 0, fmt.Errorf("header: %w", err)
	}
	id, err := c.readInt()
	if err != nil {
		return 0, 0, fmt.Errorf("id: %w", err)
	}
	qu, err := c.readFloat()
	if err != nil {
		return 0, 0, fmt.Errorf("quality: %w", err)
	}
	if err := c.expect("]"); err != nil {
		return 0, 0, fmt.Errorf("header close: %w", err)
	}
	return id, qu, nil
}

func (c *cursor) readBracketVec3() ([3]float64, error) {
	var v [3]float64
	if err := c.expect("["); err != nil {
		return v, err
	}
	for i := range v {
		f, err := c.readFloat()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	if err := c.expect("]"); err != nil {
		return v, err
	}
	return v, nil
}

func (c *cursor) readBracketVec9() ([9]float64, error) {
	var v [9]float64
	if err := c.expect("["); err != nil {
		return v, err
	}
	for i := range v {
		f, err := c.readFloat()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	if err := c.expect("]"); err != nil {
		return v, err
	}
	return v, nil
}

// readBracketFloats reads "[ v0 v1 ... vn ]" without a declared length,
// stopping at the closing bracket.
func (c *cursor) readBracketFloats() ([]float64, error) {
	if err := c.expect("["); err != nil {
		return nil, err
	}
	var vals []float64
	for {
		if c.pos >= len(c.toks) {
			return nil, fmt.Errorf("truncated group")
		}
		if c.toks[c.pos] == "]" {
			c.pos++
			return vals, nil
		}
		f, err := c.readFloat()
		if err != nil {
			return nil, err
		}
		vals = append(vals, f)
	}
}

// readBracketFloatsN reads exactly n floats from a bracket group.
func (c *cursor) readBracketFloatsN(n int) ([]float64, error) {
	vals, err := c.readBracketFloats()
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(vals))
	}
	return vals, nil
}

// skipToLineEnd discards the remaining tokens on the current line, used
// both for unknown leading tags and for soft-failing records.
func (c *cursor) skipToLineEnd() {
	c.pos = len(c.toks)
}
