package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is an event message retrieved by "dtrack2 getmsg", collapsing
// the reference SDK's five separate getters into one value.
type Message struct {
	Origin  string
	Status  string
	FrameNr int
	ErrorID uint32
	Text    string
}

// ParseMessage parses a complete "dtrack2 msg <origin> <status> <frame>
// 0x<hex> \"<text>\"" response body, including its leading "dtrack2 msg "
// (GetMessage passes the reply unchanged), into a Message. A body without
// that prefix is rejected.
func ParseMessage(body string) (Message, error) {
	const prefix = "dtrack2 msg "
	if !strings.HasPrefix(body, prefix) {
		return Message{}, fmt.Errorf("command: not a message response")
	}
	res := body

	i0 := len(prefix) - 1
	i1 := strings.IndexByte(res[i0+1:], ' ')
	if i1 < 0 {
		return Message{}, fmt.Errorf("command: truncated message: missing origin")
	}
	i1 += i0 + 1
	origin := res[i0+1 : i1]

	i0 = i1
	i1 = strings.IndexByte(res[i0+1:], ' ')
	if i1 < 0 {
		return Message{}, fmt.Errorf("command: truncated message: missing status")
	}
	i1 += i0 + 1
	status := res[i0+1 : i1]

	i0 = i1
	i1 = strings.IndexByte(res[i0+1:], ' ')
	if i1 < 0 {
		return Message{}, fmt.Errorf("command: truncated message: missing frame number")
	}
	i1 += i0 + 1
	frameNr, err := strconv.Atoi(res[i0+1 : i1])
	if err != nil {
		return Message{}, fmt.Errorf("command: bad frame number: %w", err)
	}

	xIdx := strings.IndexByte(res[i1+1:], 'x')
	if xIdx < 0 {
		return Message{}, fmt.Errorf("command: missing error code")
	}
	xIdx += i1 + 1
	hexEnd := strings.IndexByte(res[xIdx+1:], ' ')
	if hexEnd < 0 {
		return Message{}, fmt.Errorf("command: truncated error code")
	}
	hexEnd += xIdx + 1
	errID, err := strconv.ParseUint(res[xIdx+1:hexEnd], 16, 32)
	if err != nil {
		return Message{}, fmt.Errorf("command: bad error code: %w", err)
	}

	q0 := strings.IndexByte(res[hexEnd+1:], '"')
	if q0 < 0 {
		return Message{}, fmt.Errorf("command: missing opening quote")
	}
	q0 += hexEnd + 1
	q1 := strings.IndexByte(res[q0+1:], '"')
	if q1 < 0 {
		return Message{}, fmt.Errorf("command: missing closing quote")
	}
	q1 += q0 + 1

	return Message{
		Origin:  origin,
		Status:  status,
		FrameNr: frameNr,
		ErrorID: uint32(errID),
		Text:    res[q0+1 : q1],
	}, nil
}

// GetMessage sends "dtrack2 getmsg" and parses the reply into a Message.
func (c *Client) GetMessage() (Message, Response) {
	resp := c.Send("dtrack2 getmsg")
	if resp.Class != ClassPayload {
		return Message{}, resp
	}
	msg, err := ParseMessage(resp.Payload)
	if err != nil {
		return Message{}, Response{Class: ClassMalformed}
	}
	return msg, resp
}

// PollMessages is an optional convenience atop GetMessage: it repeatedly
// calls GetMessage every interval until ctx is cancelled, delivering each
// successfully parsed Message on the returned channel. The channel is
// closed when ctx is done.
func PollMessages(ctx context.Context, c *Client, interval time.Duration) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg, resp := c.GetMessage()
				if resp.Class == ClassPayload {
					select {
					case out <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

// GetParam sends "dtrack2 get <parameter>" and extracts the echoed value
// via MatchParameter.
func (c *Client) GetParam(parameter string) (string, Response) {
	resp := c.Send("dtrack2 get " + parameter)
	if resp.Class != ClassPayload {
		return "", resp
	}
	const prefix = "dtrack2 set "
	if !strings.HasPrefix(resp.Payload, prefix) {
		return "", Response{Class: ClassMalformed}
	}
	value, ok := MatchParameter(resp.Payload[len(prefix):], parameter)
	if !ok {
		return "", Response{Class: ClassMalformed}
	}
	return value, resp
}

// SetParam sends "dtrack2 set <parameter>" and reports success.
func (c *Client) SetParam(parameter string) Response {
	return c.Send("dtrack2 set " + parameter)
}

// StartTracking sends "dtrack2 tracking start".
func (c *Client) StartTracking() Response {
	return c.Send("dtrack2 tracking start")
}

// StopTracking sends "dtrack2 tracking stop".
func (c *Client) StopTracking() Response {
	return c.Send("dtrack2 tracking stop")
}
