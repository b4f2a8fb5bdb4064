package sim

// Packet is an admitted customer. Dropped arrivals never become packets.
// All times are in ms of simulation time.
type Packet struct {
	ArrivalTime  float64
	ServiceStart float64
	Completion   float64
	InterArrival float64 // time since the previous arrival
	ServiceTime  float64 // drawn at arrival
}

// WaitingTime returns the time spent in the buffer.
func (p *Packet) WaitingTime() float64 {
	return p.ServiceStart - p.ArrivalTime
}

// SystemTime returns the time from arrival to service completion.
func (p *Packet) SystemTime() float64 {
	return p.Completion - p.ArrivalTime
}
