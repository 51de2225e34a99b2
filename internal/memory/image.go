package memory

import (
	"fmt"
	"os"
	"sync"
)

type domainImage struct {
	base     uint32
	data     []byte
	disabled bool
}

// Image is an in-process Bus backed by byte slices, one per domain.
// System Bus reads resolve absolute addresses against every loaded domain.
type Image struct {
	mu      sync.RWMutex
	domains map[string]*domainImage
}

// NewImage creates an empty Image.
func NewImage() *Image {
	return &Image{domains: make(map[string]*domainImage)}
}

// NewBlankImage creates an Image with zeroed IWRAM, EWRAM and a ROM of romSize bytes.
func NewBlankImage(romSize int) *Image {
	img := NewImage()
	img.Load(DomainIWRAM, iwramBase, make([]byte, iwramSize))
	img.Load(DomainEWRAM, ewramBase, make([]byte, ewramSize))
	img.Load(DomainROM, romBase, make([]byte, romSize))
	return img
}

// LoadImageFiles builds an Image from raw dumps. Empty paths are skipped.
func LoadImageFiles(iwramPath, ewramPath, romPath string) (*Image, error) {
	img := NewImage()
	for _, f := range []struct {
		domain string
		base   uint32
		path   string
	}{
		{DomainIWRAM, iwramBase, iwramPath},
		{DomainEWRAM, ewramBase, ewramPath},
		{DomainROM, romBase, romPath},
	} {
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s dump: %w", f.domain, err)
		}
		img.Load(f.domain, f.base, data)
	}
	return img, nil
}

// Load installs data as domain, mapped at base on the System Bus.
func (m *Image) Load(domain string, base uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[domain] = &domainImage{base: base, data: data}
}

// SetDisabled makes direct reads of domain fail while leaving it reachable
// through the System Bus.
func (m *Image) SetDisabled(domain string, disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.domains[domain]; ok {
		d.disabled = disabled
	}
}

// Write copies data to an absolute address.
func (m *Image) Write(addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, off, ok := m.resolve(addr, len(data))
	if !ok {
		return fmt.Errorf("write at 0x%08X: %w", addr, ErrOutOfRange)
	}
	copy(d.data[off:], data)
	return nil
}

// ReadDomain implements Bus.
func (m *Image) ReadDomain(domain string, offset uint32, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if domain == DomainSystemBus {
		d, off, ok := m.resolve(offset, len(buf))
		if !ok {
			return fmt.Errorf("system bus 0x%08X: %w", offset, ErrOutOfRange)
		}
		copy(buf, d.data[off:])
		return nil
	}

	d, ok := m.domains[domain]
	if !ok || d.disabled {
		return fmt.Errorf("%s: %w", domain, ErrUnavailable)
	}
	if uint64(offset)+uint64(len(buf)) > uint64(len(d.data)) {
		return fmt.Errorf("%s+0x%X: %w", domain, offset, ErrOutOfRange)
	}
	copy(buf, d.data[offset:])
	return nil
}

func (m *Image) resolve(addr uint32, n int) (*domainImage, uint32, bool) {
	for _, d := range m.domains {
		if addr < d.base {
			continue
		}
		off := addr - d.base
		if uint64(off)+uint64(n) <= uint64(len(d.data)) {
			return d, off, true
		}
	}
	return nil, 0, false
}
