//go:build tinygo

package device

import (
	"errors"
	"machine"
)

// FlashStore keeps the parameter record in the flash region TinyGo reserves after the program.
// Erased flash reads back as 0xFF.
type FlashStore struct {
	offset int64
}

// NewFlashStore uses the erase block that contains offset
func NewFlashStore(offset int64) *FlashStore {
	return &FlashStore{offset: offset}
}

func (f *FlashStore) Load(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := machine.Flash.ReadAt(b, f.offset); err != nil {
		return nil, errors.New("error reading flash: " + err.Error())
	}
	return b, nil
}

func (f *FlashStore) Save(b []byte) error {
	if err := f.erase(len(b)); err != nil {
		return err
	}

	// writes must cover whole write blocks
	size := machine.Flash.WriteBlockSize()
	padded := int64(len(b))
	if rem := padded % size; rem != 0 {
		padded += size - rem
	}
	buf := make([]byte, padded)
	copy(buf, b)
	for i := len(b); i < len(buf); i++ {
		buf[i] = 0xFF
	}

	if _, err := machine.Flash.WriteAt(buf, f.offset); err != nil {
		return errors.New("error writing flash: " + err.Error())
	}
	return nil
}

// Wipe erases the whole block. Any fill other than the erased value is written on top.
func (f *FlashStore) Wipe(fill byte) error {
	size := machine.Flash.EraseBlockSize()
	if err := f.erase(int(size)); err != nil {
		return err
	}
	if fill == 0xFF {
		return nil
	}

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fill
	}
	start := f.offset - f.offset%size
	if _, err := machine.Flash.WriteAt(buf, start); err != nil {
		return errors.New("error writing flash: " + err.Error())
	}
	return nil
}

func (f *FlashStore) erase(n int) error {
	size := machine.Flash.EraseBlockSize()
	first := f.offset / size
	last := (f.offset + int64(n) - 1) / size
	if err := machine.Flash.EraseBlocks(first, last-first+1); err != nil {
		return errors.New("error erasing flash: " + err.Error())
	}
	return nil
}
