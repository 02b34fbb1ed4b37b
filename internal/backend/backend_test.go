package backend

import (
	"errors"
	"sync"
	"testing"

	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/identity"
	"github.com/PolarWolf314/kowhai/internal/notes"
	"github.com/PolarWolf314/kowhai/internal/registry"
	"github.com/google/go-cmp/cmp"
)

const (
	alice    identity.Identity = "alice-uuid"
	stranger identity.Identity = "stranger-uuid"
)

func expectAborted(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, kerrors.ErrCallAborted) {
		t.Fatalf("Expected aborted call, got %v", err)
	}
	if !errors.Is(err, want) {
		t.Fatalf("Expected %v in error chain, got %v", want, err)
	}
}

func TestAnonymousCallerIsAbortedEverywhere(t *testing.T) {
	s := New(nil, nil)

	for _, caller := range []identity.Identity{identity.Anonymous, ""} {
		calls := map[string]func() error{
			"RegisterDevice": func() error { return s.RegisterDevice(caller, "laptop", "pk") },
			"DeviceAliases": func() error {
				_, err := s.DeviceAliases(caller)
				return err
			},
			"DevicePublicKey": func() error {
				_, _, err := s.DevicePublicKey(caller, "laptop")
				return err
			},
			"DeleteDevice": func() error { return s.DeleteDevice(caller, "laptop") },
			"EncryptedSymmetricKey": func() error {
				_, err := s.EncryptedSymmetricKey(caller, "pk")
				return err
			},
			"UnsyncedPublicKeys": func() error {
				_, err := s.UnsyncedPublicKeys(caller)
				return err
			},
			"IsEncryptedSymmetricKeyRegistered": func() error {
				_, err := s.IsEncryptedSymmetricKeyRegistered(caller)
				return err
			},
			"RegisterEncryptedSymmetricKey": func() error { return s.RegisterEncryptedSymmetricKey(caller, "pk", "ct") },
			"UploadEncryptedSymmetricKeys":  func() error { return s.UploadEncryptedSymmetricKeys(caller, nil) },
			"Notes": func() error {
				_, err := s.Notes(caller)
				return err
			},
			"AddNote": func() error {
				_, err := s.AddNote(caller, "x")
				return err
			},
			"DeleteNote": func() error { return s.DeleteNote(caller, 0) },
			"UpdateNote": func() error { return s.UpdateNote(caller, notes.Note{}) },
		}
		for name, call := range calls {
			t.Run(name+"/"+string(caller), func(t *testing.T) {
				expectAborted(t, call(), kerrors.ErrAnonymousCaller)
			})
		}
	}

	if got := s.Export().Registry; len(got) != 0 {
		t.Errorf("Expected no state from anonymous calls, got %+v", got)
	}
}

func TestUnregisteredCallerIsGated(t *testing.T) {
	s := New(nil, nil)

	_, err := s.DeviceAliases(stranger)
	expectAborted(t, err, kerrors.ErrCallerNotRegistered)

	_, err = s.AddNote(stranger, "secret")
	expectAborted(t, err, kerrors.ErrCallerNotRegistered)

	// The gate fires before the registry would report DeviceNotRegistered.
	_, err = s.EncryptedSymmetricKey(stranger, "pk")
	expectAborted(t, err, kerrors.ErrCallerNotRegistered)

	if err := s.RegisterDevice(stranger, "laptop", "pk"); err != nil {
		t.Fatalf("RegisterDevice should be open to new identities: %v", err)
	}
	if _, err := s.DeviceAliases(stranger); err != nil {
		t.Errorf("Expected registered caller to pass the gate, got %v", err)
	}
}

func TestDevicePublicKey(t *testing.T) {
	s := New(nil, nil)
	if err := s.RegisterDevice(alice, "laptop", "pk-laptop"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	pk, ok, err := s.DevicePublicKey(alice, "laptop")
	if err != nil || !ok || pk != "pk-laptop" {
		t.Errorf("DevicePublicKey(laptop) = %q, %v, %v", pk, ok, err)
	}

	_, ok, err = s.DevicePublicKey(alice, "phone")
	if err != nil || ok {
		t.Errorf("DevicePublicKey(phone) = %v, %v; want not found", ok, err)
	}
}

func TestDeleteLastDeviceIsAborted(t *testing.T) {
	s := New(nil, nil)
	if err := s.RegisterDevice(alice, "laptop", "pkA"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	expectAborted(t, s.DeleteDevice(alice, "laptop"), kerrors.ErrLastDevice)

	aliases, err := s.DeviceAliases(alice)
	if err != nil {
		t.Fatalf("DeviceAliases failed: %v", err)
	}
	if diff := cmp.Diff([]string{"laptop"}, aliases); diff != "" {
		t.Errorf("Expected device to survive (-want +got):\n%s", diff)
	}
}

func TestTypedErrorsPassThrough(t *testing.T) {
	s := New(nil, nil)
	if err := s.RegisterDevice(alice, "laptop", "pkA"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	_, err := s.EncryptedSymmetricKey(alice, "pkA")
	if !errors.Is(err, kerrors.ErrKeyNotSynchronized) || errors.Is(err, kerrors.ErrCallAborted) {
		t.Errorf("Expected plain ErrKeyNotSynchronized, got %v", err)
	}

	err = s.UploadEncryptedSymmetricKeys(alice, []registry.KeyPair{{PublicKey: "pkA", EncryptedKey: "ctA"}, {PublicKey: "pkB", EncryptedKey: "ctB"}})
	if !errors.Is(err, kerrors.ErrUnknownPublicKey) {
		t.Errorf("Expected ErrUnknownPublicKey, got %v", err)
	}
	if got, _ := s.EncryptedSymmetricKey(alice, "pkA"); got != "ctA" {
		t.Errorf("Expected partial upload to persist, got %q", got)
	}
}

func TestScenarioThroughService(t *testing.T) {
	s := New(nil, nil)
	mustNoErr := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	mustNoErr(s.RegisterDevice(alice, "laptop", "pkA"))
	mustNoErr(s.RegisterDevice(alice, "phone", "pkB"))

	registered, err := s.IsEncryptedSymmetricKeyRegistered(alice)
	mustNoErr(err)
	if registered {
		t.Fatal("Expected no key yet")
	}

	mustNoErr(s.RegisterEncryptedSymmetricKey(alice, "pkA", "ct1"))
	if err := s.RegisterEncryptedSymmetricKey(alice, "pkB", "ct2"); !errors.Is(err, kerrors.ErrAlreadyRegistered) {
		t.Fatalf("Expected ErrAlreadyRegistered, got %v", err)
	}

	unsynced, err := s.UnsyncedPublicKeys(alice)
	mustNoErr(err)
	if diff := cmp.Diff([]string{"pkB"}, unsynced); diff != "" {
		t.Fatalf("UnsyncedPublicKeys mismatch (-want +got):\n%s", diff)
	}

	mustNoErr(s.UploadEncryptedSymmetricKeys(alice, []registry.KeyPair{{PublicKey: "pkB", EncryptedKey: "ct1"}}))
	got, err := s.EncryptedSymmetricKey(alice, "pkB")
	mustNoErr(err)
	if got != "ct1" {
		t.Errorf("Expected ct1, got %q", got)
	}
}

func TestNotesThroughService(t *testing.T) {
	s := New(nil, nil)
	if err := s.RegisterDevice(alice, "laptop", "pkA"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	first, err := s.AddNote(alice, "c1")
	if err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if _, err := s.AddNote(alice, "c2"); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if err := s.UpdateNote(alice, notes.Note{ID: first.ID, Data: "c1'"}); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	if err := s.DeleteNote(alice, first.ID+1); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}

	list, err := s.Notes(alice)
	if err != nil {
		t.Fatalf("Notes failed: %v", err)
	}
	want := []notes.Note{{ID: first.ID, Data: "c1'"}}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Errorf("Notes mismatch (-want +got):\n%s", diff)
	}
}

func TestForeignPanicsAreNotSwallowed(t *testing.T) {
	s := New(nil, nil)
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("Expected foreign panic to propagate, got %v", r)
		}
		// The lock must have been released.
		if err := s.RegisterDevice(alice, "laptop", "pkA"); err != nil {
			t.Errorf("RegisterDevice after panic failed: %v", err)
		}
	}()
	_ = s.call(alice, false, func() error { panic("boom") })
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	s := New(nil, nil)
	if err := s.RegisterDevice(alice, "laptop", "pkA"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddNote(alice, "n"); err != nil {
				t.Errorf("AddNote failed: %v", err)
			}
		}()
	}
	wg.Wait()

	list, _ := s.Notes(alice)
	seen := make(map[uint64]bool)
	for _, n := range list {
		if seen[n.ID] {
			t.Fatalf("Duplicate note id %d", n.ID)
		}
		seen[n.ID] = true
	}
	if len(list) != 50 {
		t.Errorf("Expected 50 notes, got %d", len(list))
	}
}

func TestExportRestore(t *testing.T) {
	s := New(nil, nil)
	_ = s.RegisterDevice(alice, "laptop", "pkA")
	_ = s.RegisterEncryptedSymmetricKey(alice, "pkA", "ct")
	_, _ = s.AddNote(alice, "n")

	restored := Restore(s.Export())
	if diff := cmp.Diff(s.Export(), restored.Export()); diff != "" {
		t.Errorf("Restore mismatch (-want +got):\n%s", diff)
	}
}
