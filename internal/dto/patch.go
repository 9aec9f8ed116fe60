package dto

// Patch is a field-level update: keys in Set overwrite, keys in Delete are
// removed, every other key of the target document is left alone.
type Patch struct {
	Set    map[string]any
	Delete []string
}

func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Delete) == 0
}

// Apply returns a copy of doc with the patch applied. doc is not modified.
func (p Patch) Apply(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+len(p.Set))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range p.Delete {
		delete(out, k)
	}
	for k, v := range p.Set {
		out[k] = v
	}
	return out
}
