package observer

import (
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/types"
)

type Nop struct{}

func (Nop) ServiceCreated(string)          {}
func (Nop) HandedOut(types.TimestampRange) {}
func (Nop) WillStoreUpperLimit(int64)      {}
func (Nop) DidStoreUpperLimit(int64)       {}
func (Nop) AllocationFailed(error)         {}

type multi []oracle.Observer

// Multi fans events out to every non nil observer in order.
func Multi(observers ...oracle.Observer) oracle.Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return Nop{}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) ServiceCreated(id string) {
	for _, o := range m {
		o.ServiceCreated(id)
	}
}

func (m multi) HandedOut(r types.TimestampRange) {
	for _, o := range m {
		o.HandedOut(r)
	}
}

func (m multi) WillStoreUpperLimit(limit int64) {
	for _, o := range m {
		o.WillStoreUpperLimit(limit)
	}
}

func (m multi) DidStoreUpperLimit(limit int64) {
	for _, o := range m {
		o.DidStoreUpperLimit(limit)
	}
}

func (m multi) AllocationFailed(err error) {
	for _, o := range m {
		o.AllocationFailed(err)
	}
}
