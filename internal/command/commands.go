package command

import (
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// ignoreFirstRedo suppresses the first Redo of a command whose effect was
// already applied by a live drag preview. The command is pushed purely to
// record undo history; applying it again would double the motion.
type ignoreFirstRedo struct {
	ignore bool
}

func (i *ignoreFirstRedo) shouldApply() bool {
	if i.ignore {
		i.ignore = false
		return false
	}
	return true
}

// InsertItems adds items to the scene and selects them.
type InsertItems struct {
	scene    Scene
	items    []item.Item
	selected []item.Item
	captured bool
}

// NewInsertItems builds the command; nothing is applied until Redo.
func NewInsertItems(scene Scene, items []item.Item) *InsertItems {
	return &InsertItems{scene: scene, items: items}
}

func (c *InsertItems) Name() string { return "insert items" }

func (c *InsertItems) Redo() {
	if !c.captured {
		// remember what was selected so undo can restore it
		for _, it := range c.items {
			if c.scene.IsSelected(it) {
				c.selected = append(c.selected, it)
			}
		}
		c.captured = true
	}
	for _, it := range c.items {
		c.scene.AddItem(it)
		c.scene.SetSelected(it, true)
	}
}

func (c *InsertItems) Undo() {
	for _, it := range c.items {
		c.scene.RemoveItem(it)
	}
}

// DeleteItems removes items from the scene, restoring their selection
// state on undo.
type DeleteItems struct {
	scene       Scene
	items       []item.Item
	wasSelected map[int64]bool
}

// NewDeleteItems builds the command.
func NewDeleteItems(scene Scene, items []item.Item) *DeleteItems {
	return &DeleteItems{scene: scene, items: items}
}

func (c *DeleteItems) Name() string { return "delete items" }

func (c *DeleteItems) Redo() {
	if c.wasSelected == nil {
		c.wasSelected = make(map[int64]bool, len(c.items))
		for _, it := range c.items {
			c.wasSelected[it.ID()] = c.scene.IsSelected(it)
		}
	}
	for _, it := range c.items {
		c.scene.RemoveItem(it)
	}
}

func (c *DeleteItems) Undo() {
	for _, it := range c.items {
		c.scene.AddItem(it)
		c.scene.SetSelected(it, c.wasSelected[it.ID()])
	}
}

// MoveItemsBy translates items by a fixed delta.
type MoveItemsBy struct {
	ignoreFirstRedo
	items []item.Item
	delta geometry.Point2D
}

// NewMoveItemsBy builds the command. When alreadyApplied is true the first
// Redo only records history.
func NewMoveItemsBy(items []item.Item, delta geometry.Point2D, alreadyApplied bool) *MoveItemsBy {
	return &MoveItemsBy{ignoreFirstRedo: ignoreFirstRedo{ignore: alreadyApplied}, items: items, delta: delta}
}

func (c *MoveItemsBy) Name() string { return "move items" }

func (c *MoveItemsBy) Redo() {
	if !c.shouldApply() {
		return
	}
	for _, it := range c.items {
		it.SetPosition(it.Position().Add(c.delta))
	}
}

func (c *MoveItemsBy) Undo() {
	for _, it := range c.items {
		it.SetPosition(it.Position().Sub(c.delta))
	}
}

// ScaleItemsBy multiplies every item's scale by a factor around a shared
// scene anchor, preserving relative layout.
type ScaleItemsBy struct {
	ignoreFirstRedo
	items  []item.Item
	factor float64
	anchor geometry.Point2D
}

// NewScaleItemsBy builds the command.
func NewScaleItemsBy(items []item.Item, factor float64, anchor geometry.Point2D, alreadyApplied bool) *ScaleItemsBy {
	return &ScaleItemsBy{ignoreFirstRedo: ignoreFirstRedo{ignore: alreadyApplied}, items: items, factor: factor, anchor: anchor}
}

func (c *ScaleItemsBy) Name() string { return "scale items" }

func (c *ScaleItemsBy) Redo() {
	if !c.shouldApply() {
		return
	}
	for _, it := range c.items {
		it.SetScale(it.Scale()*c.factor, c.anchor)
	}
}

func (c *ScaleItemsBy) Undo() {
	for _, it := range c.items {
		it.SetScale(it.Scale()/c.factor, c.anchor)
	}
}

// RotateItemsBy rotates every item by a delta around a shared scene anchor.
type RotateItemsBy struct {
	ignoreFirstRedo
	items  []item.Item
	delta  float64
	anchor geometry.Point2D
}

// NewRotateItemsBy builds the command.
func NewRotateItemsBy(items []item.Item, delta float64, anchor geometry.Point2D, alreadyApplied bool) *RotateItemsBy {
	return &RotateItemsBy{ignoreFirstRedo: ignoreFirstRedo{ignore: alreadyApplied}, items: items, delta: delta, anchor: anchor}
}

func (c *RotateItemsBy) Name() string { return "rotate items" }

func (c *RotateItemsBy) Redo() {
	if !c.shouldApply() {
		return
	}
	for _, it := range c.items {
		it.SetRotation(it.Rotation()+c.delta, c.anchor)
	}
}

func (c *RotateItemsBy) Undo() {
	for _, it := range c.items {
		it.SetRotation(it.Rotation()-c.delta, c.anchor)
	}
}

// FlipItems mirrors items about a shared anchor. Flipping is an
// involution, so undo re-applies the same flip.
type FlipItems struct {
	ignoreFirstRedo
	items    []item.Item
	anchor   geometry.Point2D
	vertical bool
}

// NewFlipItems builds the command. The interactive flip toggles on press,
// so it is usually pushed with alreadyApplied=true.
func NewFlipItems(items []item.Item, anchor geometry.Point2D, vertical bool, alreadyApplied bool) *FlipItems {
	return &FlipItems{ignoreFirstRedo: ignoreFirstRedo{ignore: alreadyApplied}, items: items, anchor: anchor, vertical: vertical}
}

func (c *FlipItems) Name() string { return "flip items" }

func (c *FlipItems) Redo() {
	if !c.shouldApply() {
		return
	}
	for _, it := range c.items {
		it.DoFlip(c.vertical, c.anchor)
	}
}

func (c *FlipItems) Undo() {
	for _, it := range c.items {
		it.DoFlip(c.vertical, c.anchor)
	}
}

// NormalizeItems sets each item's absolute scale to a precomputed target
// around its own center, used by the make-heights/widths/areas-equal
// operations. Prior scales are captured lazily on the first redo.
type NormalizeItems struct {
	items   []item.Item
	targets []float64
	prev    []float64
	anchors []geometry.Point2D
}

// NewNormalizeItems builds the command; targets must align with items.
func NewNormalizeItems(items []item.Item, targets []float64) *NormalizeItems {
	return &NormalizeItems{items: items, targets: targets}
}

func (c *NormalizeItems) Name() string { return "normalize items" }

func (c *NormalizeItems) Redo() {
	if c.prev == nil {
		c.prev = make([]float64, len(c.items))
		c.anchors = make([]geometry.Point2D, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Scale()
			c.anchors[i] = item.Center(it)
		}
	}
	for i, it := range c.items {
		it.SetScale(c.targets[i], c.anchors[i])
	}
}

func (c *NormalizeItems) Undo() {
	for i, it := range c.items {
		it.SetScale(c.prev[i], c.anchors[i])
	}
}

// ResetScale restores every item to scale 1 around its center.
type ResetScale struct {
	items   []item.Item
	prev    []float64
	anchors []geometry.Point2D
}

// NewResetScale builds the command.
func NewResetScale(items []item.Item) *ResetScale {
	return &ResetScale{items: items}
}

func (c *ResetScale) Name() string { return "reset scale" }

func (c *ResetScale) Redo() {
	if c.prev == nil {
		c.prev = make([]float64, len(c.items))
		c.anchors = make([]geometry.Point2D, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Scale()
			c.anchors[i] = item.Center(it)
		}
	}
	for i, it := range c.items {
		it.SetScale(1, c.anchors[i])
	}
}

func (c *ResetScale) Undo() {
	for i, it := range c.items {
		it.SetScale(c.prev[i], c.anchors[i])
	}
}

// ResetRotation restores every item to rotation 0 around its center.
type ResetRotation struct {
	items   []item.Item
	prev    []float64
	anchors []geometry.Point2D
}

// NewResetRotation builds the command.
func NewResetRotation(items []item.Item) *ResetRotation {
	return &ResetRotation{items: items}
}

func (c *ResetRotation) Name() string { return "reset rotation" }

func (c *ResetRotation) Redo() {
	if c.prev == nil {
		c.prev = make([]float64, len(c.items))
		c.anchors = make([]geometry.Point2D, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Rotation()
			c.anchors[i] = item.Center(it)
		}
	}
	for i, it := range c.items {
		it.SetRotation(0, c.anchors[i])
	}
}

func (c *ResetRotation) Undo() {
	for i, it := range c.items {
		it.SetRotation(c.prev[i], c.anchors[i])
	}
}

// ResetFlip unmirrors every mirrored item around its center.
type ResetFlip struct {
	items   []item.Item
	flipped []item.Item
	anchors []geometry.Point2D
}

// NewResetFlip builds the command.
func NewResetFlip(items []item.Item) *ResetFlip {
	return &ResetFlip{items: items}
}

func (c *ResetFlip) Name() string { return "reset flip" }

func (c *ResetFlip) Redo() {
	if c.flipped == nil {
		c.flipped = []item.Item{}
		for _, it := range c.items {
			if it.Flip() < 0 {
				c.flipped = append(c.flipped, it)
				c.anchors = append(c.anchors, item.Center(it))
			}
		}
	}
	for i, it := range c.flipped {
		it.DoFlip(false, c.anchors[i])
	}
}

func (c *ResetFlip) Undo() {
	for i, it := range c.flipped {
		it.DoFlip(false, c.anchors[i])
	}
}

// ResetTransforms composes the scale, rotation and flip resets into a
// single undo step.
type ResetTransforms struct {
	steps []Command
}

// NewResetTransforms builds the composite reset.
func NewResetTransforms(items []item.Item) *ResetTransforms {
	return &ResetTransforms{steps: []Command{
		NewResetFlip(items),
		NewResetRotation(items),
		NewResetScale(items),
	}}
}

func (c *ResetTransforms) Name() string { return "reset transforms" }

func (c *ResetTransforms) Redo() {
	for _, s := range c.steps {
		s.Redo()
	}
}

func (c *ResetTransforms) Undo() {
	for i := len(c.steps) - 1; i >= 0; i-- {
		c.steps[i].Undo()
	}
}

// CropImage applies a crop rectangle to an image item.
type CropImage struct {
	ignoreFirstRedo
	img      *item.Image
	oldCrop  geometry.Rect
	newCrop  geometry.Rect
}

// NewCropImage builds the command from the pre- and post-crop rectangles.
func NewCropImage(img *item.Image, oldCrop, newCrop geometry.Rect, alreadyApplied bool) *CropImage {
	return &CropImage{ignoreFirstRedo: ignoreFirstRedo{ignore: alreadyApplied}, img: img, oldCrop: oldCrop, newCrop: newCrop}
}

func (c *CropImage) Name() string { return "crop image" }

func (c *CropImage) Redo() {
	if !c.shouldApply() {
		return
	}
	c.img.SetCrop(c.newCrop)
}

func (c *CropImage) Undo() {
	c.img.SetCrop(c.oldCrop)
}

// ArrangeItems bulk-repositions items to precomputed targets, used by the
// auto-layout operations.
type ArrangeItems struct {
	items   []item.Item
	targets []geometry.Point2D
	prev    []geometry.Point2D
}

// NewArrangeItems builds the command; targets must align with items.
func NewArrangeItems(items []item.Item, targets []geometry.Point2D) *ArrangeItems {
	return &ArrangeItems{items: items, targets: targets}
}

func (c *ArrangeItems) Name() string { return "arrange items" }

func (c *ArrangeItems) Redo() {
	if c.prev == nil {
		c.prev = make([]geometry.Point2D, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Position()
		}
	}
	for i, it := range c.items {
		it.SetPosition(c.targets[i])
	}
}

func (c *ArrangeItems) Undo() {
	for i, it := range c.items {
		it.SetPosition(c.prev[i])
	}
}

// SetOpacity changes the paint opacity of items.
type SetOpacity struct {
	items   []item.Item
	opacity float64
	prev    []float64
}

// NewSetOpacity builds the command.
func NewSetOpacity(items []item.Item, opacity float64) *SetOpacity {
	return &SetOpacity{items: items, opacity: opacity}
}

func (c *SetOpacity) Name() string { return "set opacity" }

func (c *SetOpacity) Redo() {
	if c.prev == nil {
		c.prev = make([]float64, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Opacity()
		}
	}
	for _, it := range c.items {
		it.SetOpacity(c.opacity)
	}
}

func (c *SetOpacity) Undo() {
	for i, it := range c.items {
		it.SetOpacity(c.prev[i])
	}
}

// SetZValues assigns new stacking values, used by the bring-to-front and
// send-to-back operations.
type SetZValues struct {
	items   []item.Item
	targets []float64
	prev    []float64
}

// NewSetZValues builds the command; targets must align with items.
func NewSetZValues(items []item.Item, targets []float64) *SetZValues {
	return &SetZValues{items: items, targets: targets}
}

func (c *SetZValues) Name() string { return "restack items" }

func (c *SetZValues) Redo() {
	if c.prev == nil {
		c.prev = make([]float64, len(c.items))
		for i, it := range c.items {
			c.prev[i] = it.Z()
		}
	}
	for i, it := range c.items {
		it.SetZ(c.targets[i])
	}
}

func (c *SetZValues) Undo() {
	for i, it := range c.items {
		it.SetZ(c.prev[i])
	}
}
