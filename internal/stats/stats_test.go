package stats

import (
	"bytes"
	"testing"
)

func TestSnapshotReflectsTransitions(t *testing.T) {
	s := New()

	s.ClientConnected()
	s.ClientConnected()
	s.FaceDetectOK()
	s.FaceDetectOK()
	s.ClientCompleted()
	s.MalformedRequest()
	s.ClientCompleted()

	snap := s.Snapshot()
	if snap.CurrentClients != 0 {
		t.Fatalf("CurrentClients = %d, want 0", snap.CurrentClients)
	}
	if snap.CompletedClients != 2 {
		t.Fatalf("CompletedClients = %d, want 2", snap.CompletedClients)
	}
	if snap.FaceDetectOK != 2 {
		t.Fatalf("FaceDetectOK = %d, want 2", snap.FaceDetectOK)
	}
	if snap.MalformedRequests != 1 {
		t.Fatalf("MalformedRequests = %d, want 1", snap.MalformedRequests)
	}
}

func TestReporterPrintsFiveFixedLines(t *testing.T) {
	s := New()
	s.ClientConnected()
	s.ClientConnected()
	s.ClientConnected()
	s.ClientCompleted()
	s.ClientCompleted()
	s.ClientCompleted()
	s.FaceDetectOK()
	s.FaceDetectOK()
	s.MalformedRequest()

	var buf bytes.Buffer
	r := NewReporter(s, &buf)
	r.report()

	want := "Num clients connected: 0\n" +
		"Clients completed: 3\n" +
		"Face detect requests: 2\n" +
		"Face replace requests: 0\n" +
		"Malformed requests: 1\n"
	if buf.String() != want {
		t.Fatalf("report() =\n%s\nwant\n%s", buf.String(), want)
	}
}
