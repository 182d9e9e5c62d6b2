package geo

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"firestige.xyz/netprobe/internal/appdetect"
	"firestige.xyz/netprobe/internal/model"
)

type fakeOwn struct{ addr netip.Addr }

func (f fakeOwn) Contains(a netip.Addr) bool { return a == f.addr }

func TestEligibleRejectsOwnAddress(t *testing.T) {
	own := fakeOwn{addr: netip.MustParseAddr("93.184.216.34")}
	if eligible(netip.MustParseAddr("93.184.216.34"), own) {
		t.Error("expected an own address to be ineligible")
	}
}

func TestEligibleRejectsPrivateAddress(t *testing.T) {
	if eligible(netip.MustParseAddr("10.0.0.1"), nil) {
		t.Error("expected a private address to be ineligible")
	}
}

func TestEligibleAcceptsPublicNonOwnAddress(t *testing.T) {
	if !eligible(netip.MustParseAddr("8.8.8.8"), nil) {
		t.Error("expected a public non-own address to be eligible")
	}
}

func TestEligibleRejectsInvalidAddress(t *testing.T) {
	if eligible(netip.Addr{}, nil) {
		t.Error("expected the zero-value Addr to be ineligible")
	}
}

func TestTickEmitsStaticDBRecordOnce(t *testing.T) {
	w := NewWorker(NewClient("", time.Hour))
	var emitted []Record
	addr := netip.MustParseAddr("8.8.8.8")

	w.tick(context.Background(), []netip.Addr{addr}, nil, nil, func(r Record) {
		emitted = append(emitted, r)
	})
	if len(emitted) != 1 {
		t.Fatalf("len(emitted) = %d, want 1", len(emitted))
	}
	if emitted[0].City != "Mountain View" {
		t.Errorf("City = %q, want Mountain View", emitted[0].City)
	}

	// A second tick over the same candidate set must not re-emit; the
	// address is already in the queried set.
	w.tick(context.Background(), []netip.Addr{addr}, nil, nil, func(r Record) {
		emitted = append(emitted, r)
	})
	if len(emitted) != 1 {
		t.Errorf("len(emitted) after second tick = %d, want 1 (address already queried)", len(emitted))
	}
}

func TestTickSkipsIneligibleAddresses(t *testing.T) {
	w := NewWorker(NewClient("", time.Hour))
	var emitted []Record
	own := fakeOwn{addr: netip.MustParseAddr("10.0.0.1")}

	w.tick(context.Background(), []netip.Addr{
		netip.MustParseAddr("10.0.0.1"), // own
		netip.MustParseAddr("10.0.0.2"), // private, not own
	}, own, nil, func(r Record) { emitted = append(emitted, r) })

	if len(emitted) != 0 {
		t.Errorf("len(emitted) = %d, want 0 for own/private addresses", len(emitted))
	}
}

func TestTickAttachesDetectorAppAndCategory(t *testing.T) {
	w := NewWorker(NewClient("", time.Hour))
	detector := appdetect.New()
	addr := netip.MustParseAddr("8.8.8.8")
	detector.Classify(&model.Packet{TLSSNI: "github.com"}, addr)

	var emitted []Record
	w.tick(context.Background(), []netip.Addr{addr}, nil, detector, func(r Record) {
		emitted = append(emitted, r)
	})
	if len(emitted) != 1 {
		t.Fatalf("len(emitted) = %d, want 1", len(emitted))
	}
	if emitted[0].App == "" {
		t.Error("expected the detector snapshot to attach an App name")
	}
}

func TestResetClearsQueriedSet(t *testing.T) {
	w := NewWorker(NewClient("", time.Hour))
	addr := netip.MustParseAddr("8.8.8.8")
	w.markQueried(addr)
	if !w.alreadyQueried(addr) {
		t.Fatal("expected address to be marked queried")
	}

	w.Reset()
	if w.alreadyQueried(addr) {
		t.Error("expected Reset to clear the queried set")
	}
}
