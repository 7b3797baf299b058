//go:build linux

package shm

import (
	"fmt"
	"testing"
)

func TestCreateAndOpenUnique_Roundtrip(t *testing.T) {
	name := fmt.Sprintf("ada.test.%d.1", uint32(0xfeed))
	const size = 4096

	creator, err := CreateUnique(RoleControl, name, size, 0)
	if err != nil {
		t.Fatalf("CreateUnique: %v", err)
	}
	defer creator.Close()

	creator.Data[0] = 0xAB
	creator.Data[size-1] = 0xCD

	opener, err := OpenUnique(RoleControl, name, size)
	if err != nil {
		t.Fatalf("OpenUnique: %v", err)
	}
	defer opener.Close()

	if opener.Data[0] != 0xAB || opener.Data[size-1] != 0xCD {
		t.Errorf("opener did not observe creator's writes: [0]=%x [end]=%x", opener.Data[0], opener.Data[size-1])
	}

	opener.Data[1] = 0xEF
	if creator.Data[1] != 0xEF {
		t.Error("creator did not observe opener's write through the shared mapping")
	}
}

func TestCreateUnique_DuplicateNameFails(t *testing.T) {
	name := "ada.test.dup.1"
	const size = 4096

	first, err := CreateUnique(RoleIndex, name, size, -1)
	if err != nil {
		t.Fatalf("first CreateUnique: %v", err)
	}
	defer first.Close()

	if _, err := CreateUnique(RoleIndex, name, size, -1); err == nil {
		t.Error("second CreateUnique with the same name should fail (O_EXCL)")
	}
}
