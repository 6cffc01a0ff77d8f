package voxtree

import (
	"fmt"
)

const (
	defaultSpaceSize  = 64 << 20
	defaultBlockSize  = 256 << 10
	defaultTrunkSize  = 1 << 20
	defaultBlockSlack = 2.0

	// maxSpaceSize keeps every distance between addresses within a far slot.
	maxSpaceSize = 1 << 31
)

type config struct {
	spaceSize  uint64
	blockSize  uint64
	trunkSize  uint64
	blockSlack float64

	// directReach caps the distance a direct child pointer may span. Only
	// tests lower it.
	directReach uint64
}

type Option func(*config) error

// UseSpaceSize sets the size of the address space, a whole number of pages.
func UseSpaceSize(n uint64) Option {
	return func(c *config) error {
		if n%PageSize != 0 || n < 2*PageSize {
			return fmt.Errorf("space size must be a multiple of %d of at least two pages, is %d", PageSize, n)
		}
		if n > maxSpaceSize {
			return fmt.Errorf("space size must be at most %d, is %d", uint64(maxSpaceSize), n)
		}
		c.spaceSize = n
		return nil
	}
}

// UseBlockSize sets the minimum size of Blocks created by splits.
func UseBlockSize(n uint64) Option {
	return func(c *config) error {
		if n%PageSize != 0 || n == 0 {
			return fmt.Errorf("block size must be a positive multiple of %d, is %d", PageSize, n)
		}
		c.blockSize = n
		return nil
	}
}

// UseTrunkSize sets the size of the trunk Block.
func UseTrunkSize(n uint64) Option {
	return func(c *config) error {
		if n%PageSize != 0 || n == 0 {
			return fmt.Errorf("trunk size must be a positive multiple of %d, is %d", PageSize, n)
		}
		c.trunkSize = n
		return nil
	}
}

// UseBlockSlack sets the factor new Blocks are oversized by relative to
// their estimated content.
func UseBlockSlack(f float64) Option {
	return func(c *config) error {
		if f < 1 {
			return fmt.Errorf("block slack must be at least 1, is %g", f)
		}
		c.blockSlack = f
		return nil
	}
}

func useDirectReach(n uint64) Option {
	return func(c *config) error {
		if n < CDSize || n > MaxDirectReach {
			return fmt.Errorf("direct reach must be in [%d, %d], is %d", CDSize, MaxDirectReach, n)
		}
		c.directReach = n
		return nil
	}
}

func defaultConfig() *config {
	return &config{
		spaceSize:   defaultSpaceSize,
		blockSize:   defaultBlockSize,
		trunkSize:   defaultTrunkSize,
		blockSlack:  defaultBlockSlack,
		directReach: MaxDirectReach,
	}
}
