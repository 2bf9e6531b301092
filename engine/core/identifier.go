package core

import "fmt"

// IdentifierPool hands out small integer ids, reusing released slots before
// growing. Id 0 is reserved so it can act as the "no object" value.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	if capacity < 1 {
		capacity = 1
	}
	p := &IdentifierPool{owners: make([]interface{}, 1, capacity+1)}
	p.owners[0] = p
	return p
}

func (p *IdentifierPool) AquireNewID(owner interface{}) uint32 {
	if owner == nil {
		owner = struct{}{}
	}
	length := uint32(len(p.owners))
	for i := uint32(1); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i
		}
	}

	// If here, no existing free slots. Need a new id, so push one.
	// This means the id will be length - 1
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners)) - 1
}

func (p *IdentifierPool) ReleaseID(id uint32) error {
	length := uint32(len(p.owners))
	if id == 0 || id >= length {
		return fmt.Errorf("identifier_release_id: id '%d' out of range (max=%d). Nothing was done", id, length-1)
	}
	if p.owners[id] == nil {
		return fmt.Errorf("identifier_release_id: id '%d' is not in use. Nothing was done", id)
	}

	// Just zero out the entry, making it available for use.
	p.owners[id] = nil
	return nil
}

// Owner returns the value registered for id, or nil if the id is free.
func (p *IdentifierPool) Owner(id uint32) interface{} {
	if id == 0 || id >= uint32(len(p.owners)) {
		return nil
	}
	return p.owners[id]
}

// InUse counts the ids currently handed out.
func (p *IdentifierPool) InUse() int {
	n := 0
	for _, o := range p.owners[1:] {
		if o != nil {
			n++
		}
	}
	return n
}
