package rssi_nav

import (
	"fmt"
	"net"
)

// OutputConfig controls UDP output of drive commands.
type OutputConfig struct {
	UDPAddr string `json:"udp_addr"`
}

// UDPActuator sends drive commands to a motor bridge over UDP as CSV.
type UDPActuator struct {
	conn  *net.UDPConn
	state NavState
}

// NewUDPActuator creates a UDP actuator for the given address.
//
// An empty address yields an actuator that drops every command.
func NewUDPActuator(addr string) (*UDPActuator, error) {
	if addr == "" {
		return &UDPActuator{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPActuator{conn: conn}, nil
}

// Close releases the UDP socket.
func (a *UDPActuator) Close() error {
	if a == nil || a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

// SetState tags subsequent datagrams with the controller state.
func (a *UDPActuator) SetState(s NavState) {
	a.state = s
}

// Drive writes "speed,steer,state".
func (a *UDPActuator) Drive(speed, steer float64) error {
	return a.send(speed, steer)
}

// Stop writes a zero-speed, centered command.
func (a *UDPActuator) Stop() error {
	return a.send(0, 0)
}

func (a *UDPActuator) send(speed, steer float64) error {
	if a == nil || a.conn == nil {
		return nil
	}
	payload := fmt.Sprintf("%.2f,%.2f,%s", speed, steer, a.state.String())
	_, err := a.conn.Write([]byte(payload))
	return err
}

// TeeActuator fans every command out to several actuators.
type TeeActuator []Actuator

// Drive forwards to every actuator and returns the first error.
func (t TeeActuator) Drive(speed, steer float64) error {
	var first error
	for _, a := range t {
		if err := a.Drive(speed, steer); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stop forwards to every actuator and returns the first error.
func (t TeeActuator) Stop() error {
	var first error
	for _, a := range t {
		if err := a.Stop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetState tags the actuators that report state.
func (t TeeActuator) SetState(s NavState) {
	for _, a := range t {
		if st, ok := a.(interface{ SetState(NavState) }); ok {
			st.SetState(s)
		}
	}
}
