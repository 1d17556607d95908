package pagedvfd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const testPageSize = 1024

func uniqueName(t *testing.T) string {
	return "bucket-" + t.Name()
}

func openEphemeral(t *testing.T, pageSize int64) *File {
	t.Helper()
	f, err := Open(uniqueName(t), 0, Config{Persistence: false, PageSize: pageSize}, MaxAddr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func openPersistent(t *testing.T, dir string, name string, flags OpenFlag, pageSize int64) *File {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := Open(path, flags, Config{Persistence: true, PageSize: pageSize}, MaxAddr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return f
}

// S1: single whole page.
func TestScenarioSingleWholePage(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	zeros := make([]byte, 1024)
	if err := f.Write(0, zeros); err != nil {
		t.Fatal(err)
	}

	pattern := make([]byte, 1024)
	for i := range pattern {
		pattern[i] = byte(i % 256)
	}
	if err := f.Write(0, pattern); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 1024)
	if err := f.Read(0, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pattern) {
		t.Fatal("read did not return the second write's contents")
	}

	if !f.present.Contains(0) {
		t.Fatal("expected page 0 present")
	}
	if f.present.Len() != 1 {
		t.Fatalf("expected exactly one present page, got %d", f.present.Len())
	}
	if f.GetEOF() != 1024 {
		t.Fatalf("eof = %d, want 1024", f.GetEOF())
	}
}

// S2: partial first page only, non-persistent.
func TestScenarioPartialFirstPageNonPersistent(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	if err := f.Write(5, []byte{0xAA, 0xBB, 0xCC}); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 3)
	if err := f.Read(5, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("got %x", got)
	}

	one := make([]byte, 1)
	if err := f.Read(4, one); err != nil {
		t.Fatal(err)
	}
	if one[0] != 0x00 {
		t.Fatalf("expected zero byte at addr 4, got %x", one[0])
	}

	if f.GetEOF() != 8 {
		t.Fatalf("eof = %d, want 8", f.GetEOF())
	}
}

// S3: a single write spans three pages.
func TestScenarioSpansThreePages(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	buf := make([]byte, 2500)
	for i := range buf {
		buf[i] = byte(i % 251)
	}

	if err := f.Write(500, buf); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 2500)
	if err := f.Read(500, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, buf) {
		t.Fatal("round trip across three pages did not match")
	}

	for _, k := range []uint64{0, 1, 2} {
		if !f.present.Contains(k) {
			t.Fatalf("expected page %d present", k)
		}
	}
	if f.present.Len() != 3 {
		t.Fatalf("expected exactly three present pages, got %d", f.present.Len())
	}
	if f.GetEOF() != 3000 {
		t.Fatalf("eof = %d, want 3000", f.GetEOF())
	}
}

// S4: read-after-EOF on a fresh file.
func TestScenarioReadAfterEOF(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	got := make([]byte, 16)
	for i := range got {
		got[i] = 0xFF
	}
	if err := f.Read(0, got); err != nil {
		t.Fatal(err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %x, want 0", i, b)
		}
	}
	if f.present.Len() != 0 {
		t.Fatal("a read-after-eof must not create any blobs")
	}
	if f.GetEOF() != 0 {
		t.Fatalf("eof = %d, want 0", f.GetEOF())
	}
}

// S5: persistence round trip.
func TestScenarioPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	f := openPersistent(t, dir, "a.dat", FlagReadWrite|FlagCreate, testPageSize)

	if err := f.Write(0, []byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "a.dat"))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 6 {
		t.Fatalf("backing file size = %d, want 6 (trailing page written back as exactly eof mod P bytes)", len(raw))
	}
	if !bytes.Equal(raw, []byte("hello\n")) {
		t.Fatalf("backing file contents = %q, want \"hello\\n\"", raw)
	}
}

// S6: mixed overlapping writes, last writer wins per byte.
func TestScenarioMixedOverlappingWrites(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	if err := f.Write(0, bytes.Repeat([]byte{0x11}, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(500, bytes.Repeat([]byte{0x22}, 1000)); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 1500)
	if err := f.Read(0, got); err != nil {
		t.Fatal(err)
	}

	want := append(bytes.Repeat([]byte{0x11}, 500), bytes.Repeat([]byte{0x22}, 1000)...)
	if !bytes.Equal(got, want) {
		t.Fatal("overlapping writes did not resolve last-writer-wins")
	}
}

func TestPartitionInvariance(t *testing.T) {
	whole := openEphemeral(t, testPageSize)
	split, err := Open(uniqueName(t)+"-split", 0, Config{PageSize: testPageSize}, MaxAddr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = split.Close() }()

	buf := make([]byte, 3000)
	for i := range buf {
		buf[i] = byte(i % 200)
	}

	if err := whole.Write(100, buf); err != nil {
		t.Fatal(err)
	}

	offset := int64(100)
	for _, n := range []int{700, 1, 2299} {
		if err := split.Write(offset, buf[offset-100:offset-100+int64(n)]); err != nil {
			t.Fatal(err)
		}
		offset += int64(n)
	}

	gotWhole := make([]byte, 3000)
	if err := whole.Read(100, gotWhole); err != nil {
		t.Fatal(err)
	}
	gotSplit := make([]byte, 3000)
	if err := split.Read(100, gotSplit); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotWhole, gotSplit) {
		t.Fatal("decomposing one write into several should not change observable bytes")
	}
}

func TestEOFMonotonicity(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	prev := f.GetEOF()
	for _, addr := range []int64{10, 5, 2000, 1990, 1} {
		if err := f.Write(addr, []byte{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
		if f.GetEOF() < prev {
			t.Fatalf("eof decreased: had %d, now %d", prev, f.GetEOF())
		}
		prev = f.GetEOF()
	}
}

func TestCmpOrdersByName(t *testing.T) {
	a, err := Open("a.dat", 0, Config{PageSize: testPageSize}, MaxAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()
	b, err := Open("b.dat", 0, Config{PageSize: testPageSize}, MaxAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b.Close() }()

	if Cmp(a, b) >= 0 {
		t.Fatal("expected a.dat < b.dat")
	}
	if Cmp(a, a) != 0 {
		t.Fatal("expected a file to compare equal to itself")
	}
}

func TestSetGetEOA(t *testing.T) {
	f := openEphemeral(t, testPageSize)

	if err := f.SetEOA(4096); err != nil {
		t.Fatal(err)
	}
	if f.GetEOA() != 4096 {
		t.Fatalf("eoa = %d, want 4096", f.GetEOA())
	}
}

func TestQueryAdvertisesNoCapabilities(t *testing.T) {
	ephemeral := openEphemeral(t, testPageSize)
	if ephemeral.Query() != 0 {
		t.Fatal("a non-persistent file must advertise no optional capabilities")
	}

	dir := t.TempDir()
	persistent := openPersistent(t, dir, "q.dat", FlagReadWrite|FlagCreate, testPageSize)
	defer func() { _ = persistent.Close() }()
	if persistent.Query() != 0 {
		t.Fatal("a persistent file must also advertise no optional capabilities, per §6")
	}
}

func TestHandleUnavailableWithoutPersistence(t *testing.T) {
	f := openEphemeral(t, testPageSize)
	if _, err := f.Handle(); err == nil {
		t.Fatal("expected an error requesting a handle on a non-persistent file")
	}
}

func TestHandleAvailableWithPersistence(t *testing.T) {
	dir := t.TempDir()
	f := openPersistent(t, dir, "h.dat", FlagReadWrite|FlagCreate, testPageSize)
	defer func() { _ = f.Close() }()

	fd, err := f.Handle()
	if err != nil {
		t.Fatal(err)
	}
	if fd < 0 {
		t.Fatalf("expected a valid descriptor, got %d", fd)
	}
}

func TestOpenRejectsEmptyName(t *testing.T) {
	if _, err := Open("", 0, Config{PageSize: testPageSize}, MaxAddr); err == nil {
		t.Fatal("expected an error opening an empty name")
	}
}

func TestOpenRejectsBadMaxAddr(t *testing.T) {
	if _, err := Open("x", 0, Config{PageSize: testPageSize}, 0); err == nil {
		t.Fatal("expected an error for a zero maxaddr")
	}
	if _, err := Open("x", 0, Config{PageSize: testPageSize}, MaxAddr+1); err == nil {
		t.Fatal("expected an error for a maxaddr beyond MaxAddr")
	}
}

func TestOpenRejectsBadPageSize(t *testing.T) {
	if _, err := Open("x", 0, Config{PageSize: 0}, MaxAddr); err == nil {
		t.Fatal("expected an error for a zero page size")
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	f, err := Open(uniqueName(t), 0, Config{PageSize: testPageSize}, MaxAddr)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if err := f.Close(); err == nil {
		t.Fatal("expected an error on a second Close")
	}
	if err := f.Write(0, []byte{1}); err == nil {
		t.Fatal("expected an error writing to a closed file")
	}
	if err := f.Read(0, make([]byte, 1)); err == nil {
		t.Fatal("expected an error reading from a closed file")
	}
	if err := f.SetEOA(10); err == nil {
		t.Fatal("expected an error setting eoa on a closed file")
	}
}

func TestReopenMissingPersistentFileWithoutCreateFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.dat")

	if _, err := Open(path, FlagReadWrite, Config{Persistence: true, PageSize: testPageSize}, MaxAddr); err == nil {
		t.Fatal("expected an error opening a missing persistent file without create")
	}
}
