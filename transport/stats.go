package transport

import "sync"

// Stats holds an endpoint's running error and traffic counters, guarded
// by its own mutex.
type Stats struct {
	mu sync.Mutex

	ChecksumErrors   uint64
	PacketInvalid    uint64
	LostPackets      uint64
	DupPackets       uint64
	RecvFrags        uint64
	IncompleteFrames uint64
	RetransPackets   uint64
	NoMemoryErrors   uint64
	FramesSent       uint64
	FramesDelivered  uint64
	DataDropped      uint64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to read without
// the lock.
type StatsSnapshot struct {
	ChecksumErrors   uint64
	PacketInvalid    uint64
	LostPackets      uint64
	DupPackets       uint64
	RecvFrags        uint64
	IncompleteFrames uint64
	RetransPackets   uint64
	NoMemoryErrors   uint64
	FramesSent       uint64
	FramesDelivered  uint64
	DataDropped      uint64
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		ChecksumErrors:   s.ChecksumErrors,
		PacketInvalid:    s.PacketInvalid,
		LostPackets:      s.LostPackets,
		DupPackets:       s.DupPackets,
		RecvFrags:        s.RecvFrags,
		IncompleteFrames: s.IncompleteFrames,
		RetransPackets:   s.RetransPackets,
		NoMemoryErrors:   s.NoMemoryErrors,
		FramesSent:       s.FramesSent,
		FramesDelivered:  s.FramesDelivered,
		DataDropped:      s.DataDropped,
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = Stats{}
}

func (s *Stats) incChecksumError() {
	s.mu.Lock()
	s.ChecksumErrors++
	s.mu.Unlock()
}

func (s *Stats) incPacketInvalid() {
	s.mu.Lock()
	s.PacketInvalid++
	s.mu.Unlock()
}

func (s *Stats) addLostPackets(n uint64) {
	s.mu.Lock()
	s.LostPackets += n
	s.mu.Unlock()
}

func (s *Stats) incDupPackets() {
	s.mu.Lock()
	s.DupPackets++
	s.mu.Unlock()
}

func (s *Stats) incRecvFrags() {
	s.mu.Lock()
	s.RecvFrags++
	s.mu.Unlock()
}

func (s *Stats) incIncompleteFrames() {
	s.mu.Lock()
	s.IncompleteFrames++
	s.mu.Unlock()
}

func (s *Stats) addIncompleteFrames(n uint64) {
	s.mu.Lock()
	s.IncompleteFrames += n
	s.mu.Unlock()
}

func (s *Stats) incRetransPackets() {
	s.mu.Lock()
	s.RetransPackets++
	s.mu.Unlock()
}

func (s *Stats) incNoMemoryErrors() {
	s.mu.Lock()
	s.NoMemoryErrors++
	s.mu.Unlock()
}

func (s *Stats) incFramesSent() {
	s.mu.Lock()
	s.FramesSent++
	s.mu.Unlock()
}

func (s *Stats) incFramesDelivered() {
	s.mu.Lock()
	s.FramesDelivered++
	s.mu.Unlock()
}

func (s *Stats) incDataDropped() {
	s.mu.Lock()
	s.DataDropped++
	s.mu.Unlock()
}
