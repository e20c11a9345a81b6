// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"image/color"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"refboard/internal/app"
	"refboard/internal/command"
	"refboard/internal/export"
	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/internal/version"
	"refboard/internal/worker"
	"refboard/pkg/colorutil"
	"refboard/ui/board"
)

const (
	appTitle       = "RefBoard"
	boardFileExt   = ".rbd"
	prefKeyLastDir = "lastDirectory"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	board *board.View

	statusBar *widget.Label

	// Menu items that need state tracking
	snapItem *fyne.MenuItem
	snapOn   bool
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, debugShapes bool) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
	}

	mw.setupUI(debugShapes)
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.refreshTitle()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI(debugShapes bool) {
	mw.board = board.NewView(mw.state, debugShapes)
	mw.board.OnZoomChange(func(zoom float64) {
		mw.updateStatus(fmt.Sprintf("Zoom: %.0f%%", zoom*100))
	})
	mw.board.OnColorSample(func(c color.Color) {
		mw.updateStatus("Color: " + colorutil.Hex(c))
	})

	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	content := container.NewBorder(
		toolbar,                           // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.board,                          // center
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1200, 800))
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", mw.board.ZoomOut)
	zoomInBtn := widget.NewButton("+", mw.board.ZoomIn)
	fitBtn := widget.NewButton("Fit", mw.board.FitScene)
	actualBtn := widget.NewButton("1:1", mw.board.ResetZoom)

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Board", mw.onNewBoard),
		fyne.NewMenuItem("Open Board...", mw.onOpenBoard),
		mw.recentMenuItem(),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", mw.onSave),
		fyne.NewMenuItem("Save As...", mw.onSaveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import Images...", mw.onImportImages),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PNG...", mw.onExportPNG),
		fyne.NewMenuItem("Export SVG...", mw.onExportSVG),
		fyne.NewMenuItem("Export Images to Folder...", mw.onExportImages),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy", mw.onCopy),
		fyne.NewMenuItem("Paste", mw.onPaste),
		fyne.NewMenuItem("Delete", mw.onDelete),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select All", mw.onSelectAll),
		fyne.NewMenuItem("Deselect All", mw.onDeselectAll),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Text", mw.onAddText),
	)

	mw.snapItem = fyne.NewMenuItem("  Snap Rotation", mw.onToggleSnap)

	itemsMenu := fyne.NewMenu("Items",
		fyne.NewMenuItem("Bring to Front", mw.onBringToFront),
		fyne.NewMenuItem("Send to Back", mw.onSendToBack),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Normalize Height", func() { mw.onNormalize(scene.NormalizeHeight) }),
		fyne.NewMenuItem("Normalize Width", func() { mw.onNormalize(scene.NormalizeWidth) }),
		fyne.NewMenuItem("Normalize Size", func() { mw.onNormalize(scene.NormalizeArea) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Arrange in Row", func() { mw.onArrange(false) }),
		fyne.NewMenuItem("Arrange in Grid", func() { mw.onArrange(true) }),
		fyne.NewMenuItemSeparator(),
		mw.opacityMenuItem(),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Crop Image", mw.onEnterCrop),
		fyne.NewMenuItem("Apply Crop", mw.onCommitCrop),
		fyne.NewMenuItem("Cancel Crop", mw.onCancelCrop),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Scale", func() {
			mw.pushReset(func(items []item.Item) command.Command { return command.NewResetScale(items) })
		}),
		fyne.NewMenuItem("Reset Rotation", func() {
			mw.pushReset(func(items []item.Item) command.Command { return command.NewResetRotation(items) })
		}),
		fyne.NewMenuItem("Reset Flip", func() {
			mw.pushReset(func(items []item.Item) command.Command { return command.NewResetFlip(items) })
		}),
		fyne.NewMenuItem("Reset Crop", mw.onResetCrop),
		fyne.NewMenuItem("Reset All Transforms", func() {
			mw.pushReset(func(items []item.Item) command.Command { return command.NewResetTransforms(items) })
		}),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.board.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.board.ZoomOut),
		fyne.NewMenuItem("Actual Size", mw.board.ResetZoom),
		fyne.NewMenuItem("Fit Board", mw.board.FitScene),
		fyne.NewMenuItemSeparator(),
		mw.snapItem,
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, itemsMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// recentMenuItem builds the "Open Recent" submenu from the settings.
func (mw *MainWindow) recentMenuItem() *fyne.MenuItem {
	recent := fyne.NewMenuItem("Open Recent", nil)
	var items []*fyne.MenuItem
	for _, path := range mw.state.Settings.RecentFiles() {
		p := path
		items = append(items, fyne.NewMenuItem(filepath.Base(p), func() {
			mw.openBoardPath(p)
		}))
	}
	if len(items) == 0 {
		empty := fyne.NewMenuItem("(empty)", nil)
		empty.Disabled = true
		items = append(items, empty)
	}
	recent.ChildMenu = fyne.NewMenu("", items...)
	return recent
}

// opacityMenuItem builds the Opacity submenu.
func (mw *MainWindow) opacityMenuItem() *fyne.MenuItem {
	opacity := fyne.NewMenuItem("Opacity", nil)
	var items []*fyne.MenuItem
	for _, pct := range []int{25, 50, 75, 100} {
		p := pct
		items = append(items, fyne.NewMenuItem(fmt.Sprintf("%d%%", p), func() {
			sel := mw.state.Scene.SelectedItems()
			if len(sel) == 0 {
				return
			}
			mw.state.Scene.Push(command.NewSetOpacity(sel, float64(p)/100))
			mw.board.Refresh()
		}))
	}
	opacity.ChildMenu = fyne.NewMenu("", items...)
	return opacity
}

// setupShortcuts binds the common editing keys.
func (mw *MainWindow) setupShortcuts() {
	canvas := mw.Canvas()
	bind := func(name fyne.KeyName, mod fyne.KeyModifier, fn func()) {
		canvas.AddShortcut(&desktop.CustomShortcut{KeyName: name, Modifier: mod}, func(fyne.Shortcut) { fn() })
	}

	bind(fyne.KeyZ, fyne.KeyModifierControl, mw.onUndo)
	bind(fyne.KeyZ, fyne.KeyModifierControl|fyne.KeyModifierShift, mw.onRedo)
	bind(fyne.KeyY, fyne.KeyModifierControl, mw.onRedo)
	bind(fyne.KeyC, fyne.KeyModifierControl, mw.onCopy)
	bind(fyne.KeyV, fyne.KeyModifierControl, mw.onPaste)
	bind(fyne.KeyA, fyne.KeyModifierControl, mw.onSelectAll)
	bind(fyne.KeyS, fyne.KeyModifierControl, mw.onSave)
	bind(fyne.KeyO, fyne.KeyModifierControl, mw.onOpenBoard)
	bind(fyne.KeyN, fyne.KeyModifierControl, mw.onNewBoard)

	canvas.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.onDelete()
		case fyne.KeyEscape:
			if mw.board.Engine().Cropping() {
				mw.onCancelCrop()
			} else {
				mw.onDeselectAll()
			}
		case fyne.KeyReturn, fyne.KeyEnter:
			if mw.board.Engine().Cropping() {
				mw.onCommitCrop()
			}
		}
	})
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventBoardLoaded, func(data interface{}) {
		mw.refreshTitle()
		mw.board.FitScene()
		mw.board.Refresh()
		if path, ok := data.(string); ok && path != "" {
			mw.updateStatus("Loaded " + path)
		}
	})

	mw.state.On(app.EventBoardSaved, func(data interface{}) {
		mw.refreshTitle()
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
		}
	})

	mw.state.On(app.EventModified, func(interface{}) {
		mw.refreshTitle()
	})

	mw.state.On(app.EventItemsImported, func(data interface{}) {
		mw.board.Refresh()
		if items, ok := data.([]item.Item); ok {
			mw.updateStatus(fmt.Sprintf("Imported %d image(s)", len(items)))
		}
	})

	mw.state.On(app.EventProgress, func(data interface{}) {
		if p, ok := data.(worker.Progress); ok {
			mw.updateStatus(fmt.Sprintf("Working... %d/%d", p.Done, p.Total))
		}
	})

	mw.state.On(app.EventErrors, func(data interface{}) {
		if errs, ok := data.([]error); ok && len(errs) > 0 {
			mw.updateStatus(fmt.Sprintf("%d file(s) failed: %v", len(errs), errs[0]))
		}
	})
}

func (mw *MainWindow) refreshTitle() {
	mw.SetTitle(appTitle + " - " + mw.state.Title())
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onNewBoard() {
	mw.state.NewBoard()
	mw.board.Refresh()
}

func (mw *MainWindow) onOpenBoard() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.openBoardPath(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{boardFileExt}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) openBoardPath(path string) {
	mw.saveLastDir(path)
	if err := mw.state.OpenBoard(path); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSave() {
	if err := mw.state.Save(); err != nil {
		if err == app.ErrNoPath {
			mw.onSaveAs()
			return
		}
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != boardFileExt {
			path += boardFileExt
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveAs(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("board" + boardFileExt)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onImportImages() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.state.ImportImages([]string{path}, mw.board.Center())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportPNG() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".png" {
			path += ".png"
		}
		if err := mw.state.ExportPNG(path, 0); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName("board.png")
	fd.Show()
}

func (mw *MainWindow) onExportSVG() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".svg" {
			path += ".svg"
		}
		if err := mw.state.ExportSVG(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName("board.svg")
	fd.Show()
}

func (mw *MainWindow) onExportImages() {
	fd := dialog.NewFolderOpen(func(list fyne.ListableURI, err error) {
		if err != nil || list == nil {
			return
		}
		// Existing files are kept; the numbering makes reruns cheap to
		// redirect to an empty folder instead.
		skipAll := func(string) (export.CollisionChoice, bool) {
			return export.CollisionSkip, true
		}
		result, err := mw.state.ExportImages(list.Path(), 1, skipAll)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Exported %d image(s), skipped %d existing", result.Written, result.Skipped))
	}, mw.Window)
	fd.Show()
}

func (mw *MainWindow) onUndo() {
	if mw.state.Scene.Undo() {
		mw.board.Refresh()
		mw.updateStatus("Undo")
	}
}

func (mw *MainWindow) onRedo() {
	if mw.state.Scene.Redo() {
		mw.board.Refresh()
		mw.updateStatus("Redo")
	}
}

func (mw *MainWindow) onCopy() {
	n := mw.state.CopySelection()
	if n > 0 {
		mw.updateStatus(fmt.Sprintf("Copied %d item(s)", n))
	}
}

func (mw *MainWindow) onPaste() {
	if items := mw.state.Paste(); len(items) > 0 {
		mw.board.Refresh()
		mw.updateStatus(fmt.Sprintf("Pasted %d item(s)", len(items)))
	}
}

func (mw *MainWindow) onDelete() {
	mw.state.DeleteSelection()
	mw.board.Refresh()
}

func (mw *MainWindow) onSelectAll() {
	mw.state.Scene.SelectAll()
	mw.board.Refresh()
}

func (mw *MainWindow) onDeselectAll() {
	mw.state.Scene.ClearSelection()
	mw.board.Refresh()
}

func (mw *MainWindow) onAddText() {
	entry := widget.NewMultiLineEntry()
	entry.SetPlaceHolder("Text...")
	dialog.ShowCustomConfirm("Add Text", "Add", "Cancel", entry, func(ok bool) {
		if !ok || entry.Text == "" {
			return
		}
		mw.state.AddText(entry.Text, mw.board.Center())
		mw.board.Refresh()
	}, mw.Window)
}

func (mw *MainWindow) onBringToFront() {
	mw.state.Scene.BringToFront(mw.state.Scene.SelectedItems())
	mw.board.Refresh()
}

func (mw *MainWindow) onSendToBack() {
	mw.state.Scene.SendToBack(mw.state.Scene.SelectedItems())
	mw.board.Refresh()
}

func (mw *MainWindow) onNormalize(mode scene.NormalizeMode) {
	mw.state.Scene.Normalize(mode)
	mw.board.Refresh()
}

func (mw *MainWindow) onArrange(optimal bool) {
	mw.state.Scene.Arrange(mw.state.Settings.ArrangeGap(), optimal)
	mw.board.Refresh()
}

func (mw *MainWindow) onEnterCrop() {
	if !mw.board.Engine().EnterCropMode() {
		mw.updateStatus("Select a single image to crop")
		return
	}
	mw.board.Refresh()
	mw.updateStatus("Crop: drag handles, Enter applies, Escape cancels")
}

func (mw *MainWindow) onCommitCrop() {
	mw.board.Engine().CommitCrop()
	mw.board.Refresh()
}

func (mw *MainWindow) onCancelCrop() {
	mw.board.Engine().CancelCrop()
	mw.board.Refresh()
}

func (mw *MainWindow) onResetCrop() {
	for _, it := range mw.state.Scene.SelectedItems() {
		if img, ok := it.(*item.Image); ok && img.Crop() != img.NaturalRect() {
			mw.state.Scene.Push(command.NewCropImage(img, img.Crop(), img.NaturalRect(), false))
		}
	}
	mw.board.Refresh()
}

// pushReset wraps the single-constructor reset commands.
func (mw *MainWindow) pushReset(build func(items []item.Item) command.Command) {
	sel := mw.state.Scene.SelectedItems()
	if len(sel) == 0 {
		return
	}
	mw.state.Scene.Push(build(sel))
	mw.board.Refresh()
}

func (mw *MainWindow) onToggleSnap() {
	mw.snapOn = !mw.snapOn
	mw.board.Engine().SetRotationSnap(mw.snapOn)
	if mw.snapOn {
		mw.snapItem.Label = "✓ Snap Rotation"
	} else {
		mw.snapItem.Label = "  Snap Rotation"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"A reference image board for visual research.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
