package wasm

import "fmt"

// Validate checks the module for structural validity.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateExportIndices(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	if err := m.validateMemoryLimits(); err != nil {
		return err
	}
	if err := m.validateGlobals(); err != nil {
		return err
	}
	if err := m.validateData(); err != nil {
		return err
	}
	return nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))
	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d: type index %d out of range (have %d types)", i, typeIdx, numTypes)
		}
	}
	return nil
}

func (m *Module) validateExportIndices() error {
	for _, exp := range m.Exports {
		var limit int
		switch exp.Kind {
		case KindFunc:
			limit = len(m.Funcs)
		case KindMemory:
			limit = len(m.Memories)
		default:
			return fmt.Errorf("export %q: unknown kind %d", exp.Name, exp.Kind)
		}
		if int(exp.Idx) >= limit {
			return fmt.Errorf("export %q: index %d out of range (have %d)", exp.Name, exp.Idx, limit)
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	seen := make(map[string]bool)
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = true
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	// Code section must have same count as function section
	if len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("code section has %d entries but function section has %d",
			len(m.Code), len(m.Funcs))
	}
	return nil
}

func (m *Module) validateMemoryLimits() error {
	for i := range m.Memories {
		if err := validateMemoryType(&m.Memories[i], i); err != nil {
			return err
		}
	}
	return nil
}

// validateGlobals requires each initializer to be a single constant of
// the global's own type.
func (m *Module) validateGlobals() error {
	for i, g := range m.Globals {
		if g.Type.ValType != ValI32 {
			return fmt.Errorf("global %d: unsupported type %s", i, g.Type.ValType)
		}
		init := g.Init
		if len(init) < 3 || init[0] != OpI32Const || init[len(init)-1] != OpEnd {
			return fmt.Errorf("global %d: init is not an %s.const expression", i, g.Type.ValType)
		}
	}
	return nil
}

func (m *Module) validateData() error {
	if len(m.Data) > 0 && len(m.Memories) == 0 {
		return fmt.Errorf("module has %d data segments but no memory", len(m.Data))
	}
	for i, d := range m.Data {
		if len(d.Offset) == 0 || d.Offset[len(d.Offset)-1] != OpEnd {
			return fmt.Errorf("data segment %d: offset expression not terminated by end", i)
		}
	}
	return nil
}

func validateMemoryType(mem *MemoryType, idx int) error {
	if mem.Limits.Min > MemoryMaxPages32 {
		return fmt.Errorf("memory %d: min pages %d exceeds maximum %d",
			idx, mem.Limits.Min, MemoryMaxPages32)
	}
	if mem.Limits.Max != nil {
		if *mem.Limits.Max > MemoryMaxPages32 {
			return fmt.Errorf("memory %d: max pages %d exceeds maximum %d",
				idx, *mem.Limits.Max, MemoryMaxPages32)
		}
		if *mem.Limits.Max < mem.Limits.Min {
			return fmt.Errorf("memory %d: max pages %d below min %d",
				idx, *mem.Limits.Max, mem.Limits.Min)
		}
	}
	return nil
}
