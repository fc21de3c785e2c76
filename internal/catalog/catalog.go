// Package catalog lists the Verilog primitives shipped with the Bluespec
// compiler and the ones that cannot be synthesized.
package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is an immutable set of known primitive names plus a disjoint map
// of blocked primitive names to the reason they are unsupported.
type Catalog struct {
	known   map[string]struct{}
	blocked map[string]string
}

// knownPrimitives are the modules found under $BLUESPECDIR/Verilog.
var knownPrimitives = []string{
	"BRAM1", "BRAM1BE", "BRAM1BELoad", "BRAM1Load",
	"BRAM2", "BRAM2BE", "BRAM2BELoad", "BRAM2Load",
	"BypassCrossingWire", "BypassWire",
	"ClockDiv", "ClockInverter", "ClockMux", "ClockSelect",
	"ConfigRegA", "ConfigRegN", "ConfigRegUN",
	"ConvertFromZ", "ConvertToZ",
	"CrossingBypassWire", "CrossingRegA", "CrossingRegN", "CrossingRegUN",
	"DualPortRAM", "Empty",
	"FIFO1", "FIFO10", "FIFO2", "FIFOL1", "FIFOL10", "FIFOL2",
	"GatedClock", "GatedClockInverter", "GatedClockMux", "GatedClockX",
	"InoutConnect", "LatchN",
	"MakeClock", "MakeReset", "MakeReset0", "MakeResetA",
	"RWire", "RWire0",
	"RegA", "RegAligned", "RegFile", "RegFileLoad", "RegN", "RegUN",
	"ResetEither", "ResetInverter", "ResetMux", "ResetToBool", "ResolveZ",
	"RevertReg", "SampleReg",
	"SizedFIFO", "SizedFIFO0", "SizedFIFOL",
	"SyncBit", "SyncBit05", "SyncBit1", "SyncBit15",
	"SyncFIFO", "SyncFIFO0", "SyncFIFO1", "SyncFIFO10",
	"SyncFIFOLevel", "SyncFIFOLevel0",
	"SyncHandshake", "SyncPulse", "SyncRegister",
	"SyncReset", "SyncReset0", "SyncResetA", "SyncWire",
	"TriState", "UngatedClockMux", "UngatedClockSelect",
}

// blockedPrimitives ship with the compiler but have no synthesizable body.
var blockedPrimitives = map[string]string{
	"ConstrainedRandom": "simulation-only $random task isn't supported",
	"ClockGen":          "simulation-only clock generator relies on delay controls",
	"ProbeHook":         "simulation-only probe hook has no hardware",
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog of Bluespec primitives.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(knownPrimitives, blockedPrimitives)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// New builds a catalog. Names may not be both known and blocked.
func New(known []string, blocked map[string]string) (*Catalog, error) {
	c := &Catalog{
		known:   make(map[string]struct{}, len(known)),
		blocked: make(map[string]string, len(blocked)),
	}
	for name, reason := range blocked {
		if reason == "" {
			return nil, fmt.Errorf("blocked primitive %s has no reason", name)
		}
		c.blocked[name] = reason
	}
	for _, name := range known {
		if _, ok := c.blocked[name]; ok {
			return nil, fmt.Errorf("primitive %s is both known and blocked", name)
		}
		c.known[name] = struct{}{}
	}
	return c, nil
}

// IsKnown reports whether name is a loadable library primitive.
func (c *Catalog) IsKnown(name string) bool {
	_, ok := c.known[name]
	return ok
}

// BlockReason returns why name can't be used, if it is blocked.
func (c *Catalog) BlockReason(name string) (string, bool) {
	reason, ok := c.blocked[name]
	return reason, ok
}

// Known returns the known primitive names in lexical order.
func (c *Catalog) Known() []string {
	names := make([]string, 0, len(c.known))
	for name := range c.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Blocked returns the blocked primitive names in lexical order.
func (c *Catalog) Blocked() []string {
	names := make([]string, 0, len(c.blocked))
	for name := range c.blocked {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
