package testutil

import (
	"sync"

	"github.com/whisper/pairbot/internal/transport"
)

// Sent is one delivery recorded by FakeTransport.
type Sent struct {
	To       int64
	Text     string
	Keyboard *transport.Keyboard
	Buttons  [][]transport.Button
	Media    *transport.Media
	Blurred  bool
	Forward  bool
	FromUser int64
	Message  int
}

// FakeTransport records deliveries. Users listed in Fail get an error.
type FakeTransport struct {
	mu   sync.Mutex
	sent []Sent
	Fail map[int64]error
}

// NewFakeTransport creates an empty recorder.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{Fail: make(map[int64]error)}
}

func (f *FakeTransport) record(s Sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail[s.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *FakeTransport) SendText(userID int64, text string) error {
	return f.record(Sent{To: userID, Text: text})
}

func (f *FakeTransport) SendChoices(userID int64, text string, kb transport.Keyboard) error {
	return f.record(Sent{To: userID, Text: text, Keyboard: &kb})
}

func (f *FakeTransport) SendButtons(userID int64, text string, rows [][]transport.Button) error {
	return f.record(Sent{To: userID, Text: text, Buttons: rows})
}

func (f *FakeTransport) SendMedia(userID int64, m transport.Media, blurred bool) error {
	return f.record(Sent{To: userID, Text: m.Caption, Media: &m, Blurred: blurred})
}

func (f *FakeTransport) Forward(channelID, fromUserID int64, messageID int) error {
	return f.record(Sent{To: channelID, Forward: true, FromUser: fromUserID, Message: messageID})
}

// To returns everything delivered to id, in order.
func (f *FakeTransport) To(id int64) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.sent {
		if s.To == id {
			out = append(out, s)
		}
	}
	return out
}

// Texts returns the texts delivered to id, in order.
func (f *FakeTransport) Texts(id int64) []string {
	var out []string
	for _, s := range f.To(id) {
		out = append(out, s.Text)
	}
	return out
}

// Last returns the last delivery to id.
func (f *FakeTransport) Last(id int64) (Sent, bool) {
	all := f.To(id)
	if len(all) == 0 {
		return Sent{}, false
	}
	return all[len(all)-1], true
}

// Reset forgets all recorded deliveries.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

// FakePublisher records published events by subject.
type FakePublisher struct {
	mu       sync.Mutex
	Subjects []string
	Payloads [][]byte
}

func (p *FakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Subjects = append(p.Subjects, subject)
	p.Payloads = append(p.Payloads, data)
	return nil
}

// Count returns how many events were published on subject.
func (p *FakePublisher) Count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.Subjects {
		if s == subject {
			n++
		}
	}
	return n
}
