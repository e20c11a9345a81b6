package item

// FromRecord reconstitutes the item variant matching the record's type
// discriminator. Unknown types downgrade to an Error placeholder rather
// than failing, so files written by other versions survive a load/save
// cycle.
func FromRecord(rec Record) (Item, error) {
	switch rec.Type {
	case TypeImage:
		return NewImageFromRecord(rec)
	case TypeText:
		return NewTextFromRecord(rec)
	default:
		return NewErrorFromRecord(rec), nil
	}
}
