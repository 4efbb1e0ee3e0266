package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

const (
	viewHeader     = "header"
	viewFooter     = "footer"
	viewActive     = "active"
	viewCompleted  = "completed"
	viewCategories = "categories"
	viewPrompt     = "prompt"
	viewForm       = "form"
	viewHelp       = "help"
)

var focusOrder = []string{viewActive, viewCompleted, viewCategories}

type UI struct {
	ctx   context.Context
	ws    *tasks.Workspace
	email string
	gui   *gocui.Gui

	focus             string
	selectedActive    int
	selectedCompleted int
	selectedCategory  int

	prompt       *promptState
	promptEditor *promptEditor
	form         *formState
	formEditor   *formEditor
	helpActive   bool
}

type promptState struct {
	title  string
	value  string
	submit func(string)
}

type formState struct {
	taskID string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

type promptEditor struct {
	ui *UI
}

// New builds a UI over ws without a terminal. Run attaches one.
func New(ctx context.Context, ws *tasks.Workspace, email string) *UI {
	ui := &UI{ctx: ctx, ws: ws, email: email, focus: viewActive}
	ui.formEditor = &formEditor{ui: ui}
	ui.promptEditor = &promptEditor{ui: ui}
	return ui
}

// Run shows the workspace until the user quits or ctx is done.
func Run(ctx context.Context, ws *tasks.Workspace, email string) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := New(ctx, ws, email)
	ui.gui = gui

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	stop := ui.watch(gui)
	defer stop()

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// watch redraws whenever the controller, the catalog or the toasts change.
func (u *UI) watch(gui *gocui.Gui) (stop func()) {
	redraw := func() {
		gui.Update(func(*gocui.Gui) error { return nil })
	}
	cancels := []func(){
		u.ws.Controller.Watch(func(tasks.State) { redraw() }),
		u.ws.Catalog.Watch(redraw),
		u.ws.Toasts().OnChange(func([]notify.Toast) { redraw() }),
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-u.ctx.Done():
			gui.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
		case <-done:
		}
	}()

	return func() {
		close(done)
		for _, cancel := range cancels {
			cancel()
		}
	}
}

type binding struct {
	view    string
	key     interface{}
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusActive},
		{"", '2', u.focusCompleted},
		{"", '3', u.focusCategories},
		{"", '/', u.startFilter},
		{"", 'g', u.clearFilters},
		{"", 'a', u.add},
		{"", 'e', u.editTask},
		{"", 'x', u.toggleComplete},
		{"", 'd', u.deleteSelected},
		{"", 'D', u.deleteCompleted},
		{"", 's', u.cycleSort},
		{"", 'p', u.cyclePriority},
		{"", ']', u.nextPage},
		{"", '[', u.prevPage},
		{"", 'z', u.cyclePageSize},
		{"", '?', u.toggleHelp},

		{viewActive, gocui.KeyArrowRight, u.nextPage},
		{viewActive, gocui.KeyArrowLeft, u.prevPage},
		{viewActive, gocui.KeySpace, u.toggleComplete},
		{viewActive, gocui.KeyEnter, u.editTask},
		{viewCompleted, gocui.KeySpace, u.toggleComplete},
		{viewCompleted, gocui.KeyEnter, u.editTask},
		{viewCategories, gocui.KeySpace, u.selectCategory},
		{viewCategories, gocui.KeyEnter, u.selectCategory},
		{viewCategories, 'r', u.renameCategory},

		{viewPrompt, gocui.KeyEnter, u.submitPrompt},
		{viewPrompt, gocui.KeyEsc, u.cancelPrompt},

		{viewForm, gocui.KeyEnter, u.submitForm},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},

		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, name := range focusOrder {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
		)
	}

	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	state := u.ws.Controller.State()
	categories := categoryEntries(u.ws.Catalog.Categories())
	u.clampSelection(state, len(categories))

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.Clear()
	fmt.Fprintf(headerView, "%s | %s", u.email, headerLine(state, u.ws.Catalog))

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView, state, u.ws.Toasts().List())

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}
	body := computeLayout(maxX, bodyBottom-bodyTop+1)
	sideX1 := body.sideWidth - 1
	mainX0 := sideX1 + 1
	activeY1 := bodyTop + body.activeHeight - 1

	categoriesView, err := gui.SetView(viewCategories, 0, bodyTop, sideX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		categoriesView.Title = "3 Categories"
		categoriesView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(categoriesView, u.focus == viewCategories)
	u.renderCategories(categoriesView, categories, state.SelectedCategory)

	activeView, err := gui.SetView(viewActive, mainX0, bodyTop, maxX-1, activeY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		activeView.TitleColor = gocui.ColorRed
	}
	activeView.Title = fmt.Sprintf("1 Tasks (%d)", state.TotalTasks)
	applyViewStyle(activeView, u.focus == viewActive)
	u.renderTaskList(activeView, state.Tasks, u.selectedActive, u.focus == viewActive)

	completedView, err := gui.SetView(viewCompleted, mainX0, activeY1+1, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		completedView.TitleColor = gocui.ColorGreen
	}
	completedView.Title = fmt.Sprintf("2 Completed (%d)", len(state.CompletedTasks))
	applyViewStyle(completedView, u.focus == viewCompleted)
	u.renderTaskList(completedView, state.CompletedTasks, u.selectedCompleted, u.focus == viewCompleted)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}
	gui.Cursor = u.prompt != nil || u.form != nil
	return nil
}

type bodyLayout struct {
	sideWidth    int
	activeHeight int
}

func computeLayout(width, height int) bodyLayout {
	safeWidth := max(width, 40)
	safeHeight := max(height, 8)

	sideWidth := min(max(safeWidth/4, 18), 32)
	activeHeight := max(safeHeight*3/5, 4)
	if safeHeight-activeHeight < 3 {
		activeHeight = max(safeHeight-3, 4)
	}
	return bodyLayout{sideWidth: sideWidth, activeHeight: activeHeight}
}

func (u *UI) clampSelection(state tasks.State, categories int) {
	u.selectedActive = clampIndex(u.selectedActive, len(state.Tasks))
	u.selectedCompleted = clampIndex(u.selectedCompleted, len(state.CompletedTasks))
	u.selectedCategory = clampIndex(u.selectedCategory, categories)
}

func clampIndex(index, length int) int {
	if length == 0 || index < 0 {
		return 0
	}
	return min(index, length-1)
}

func (u *UI) renderFooter(view *gocui.View, state tasks.State, toasts []notify.Toast) {
	view.Clear()
	view.SetOrigin(0, 0)
	fmt.Fprintln(view, pageLine(state))
	fmt.Fprintln(view, toastLine(toasts))
	fmt.Fprint(view, "a add | e edit | x done | d delete | D clear done | / filter | s sort | p priority | [ ] page | z size | ? help | q quit")
}

func (u *UI) renderTaskList(view *gocui.View, list []model.Task, selected int, focused bool) {
	view.Clear()
	if len(list) == 0 {
		fmt.Fprintln(view, "  No tasks")
		return
	}
	for i, task := range list {
		prefix := " "
		if i == selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, u.ws.Catalog))
	}
	if focused {
		view.SetCursor(0, min(selected, len(list)-1))
	}
}

func (u *UI) renderCategories(view *gocui.View, entries []categoryEntry, current *string) {
	view.Clear()
	focused := u.focus == viewCategories
	for i, entry := range entries {
		prefix := " "
		if i == u.selectedCategory && focused {
			prefix = ">"
		}
		mark := ""
		if sameID(entry.ID, current) {
			mark = " ✓"
		}
		fmt.Fprintf(view, "%s %s%s\n", prefix, entry.Name, mark)
	}
	if focused {
		view.SetCursor(0, u.selectedCategory)
	}
}

func (u *UI) selectedTask() (model.Task, bool) {
	state := u.ws.Controller.State()
	switch u.focus {
	case viewActive:
		if u.selectedActive < len(state.Tasks) {
			return state.Tasks[u.selectedActive], true
		}
	case viewCompleted:
		if u.selectedCompleted < len(state.CompletedTasks) {
			return state.CompletedTasks[u.selectedCompleted], true
		}
	}
	return model.Task{}, false
}

func (u *UI) selectedCategoryEntry() categoryEntry {
	entries := categoryEntries(u.ws.Catalog.Categories())
	return entries[clampIndex(u.selectedCategory, len(entries))]
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	next := focusOrder[0]
	for i, name := range focusOrder {
		if name == u.focus {
			next = focusOrder[(i+1)%len(focusOrder)]
		}
	}
	return u.setFocus(gui, next)
}

func (u *UI) focusActive(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewActive)
}

func (u *UI) focusCompleted(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewCompleted)
}

func (u *UI) focusCategories(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewCategories)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	u.move(1)
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	u.move(-1)
	return nil
}

func (u *UI) move(delta int) {
	if u.inputActive() {
		return
	}
	state := u.ws.Controller.State()
	switch u.focus {
	case viewActive:
		u.selectedActive = clampIndex(u.selectedActive+delta, len(state.Tasks))
	case viewCompleted:
		u.selectedCompleted = clampIndex(u.selectedCompleted+delta, len(state.CompletedTasks))
	case viewCategories:
		u.selectedCategory = clampIndex(u.selectedCategory+delta, len(u.ws.Catalog.Categories())+1)
	}
}

func (u *UI) nextPage(_ *gocui.Gui, _ *gocui.View) error {
	return u.turnPage(1)
}

func (u *UI) prevPage(_ *gocui.Gui, _ *gocui.View) error {
	return u.turnPage(-1)
}

func (u *UI) turnPage(delta int) error {
	if u.inputActive() {
		return nil
	}
	state := u.ws.Controller.State()
	if u.ws.Controller.SetPage(state.CurrentPage + delta) {
		u.selectedActive = 0
	}
	return nil
}

func (u *UI) cyclePageSize(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.ws.Controller.SetPageSize(nextPageSize(u.ws.Controller.State().TasksPerPage))
	u.selectedActive = 0
	return nil
}

func (u *UI) cycleSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.ws.Controller.CycleSort()
	return nil
}

func (u *UI) cyclePriority(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	current := u.ws.Controller.State().SelectedPriority
	u.ws.Controller.SetSelectedPriority(nextPriority(u.ws.Catalog.Priorities(), current))
	u.selectedActive = 0
	return nil
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.ws.Controller.SetSelectedCategory(nil)
	u.ws.Controller.SetSelectedPriority(nil)
	u.ws.Controller.SetNameFilter("")
	u.ws.Controller.SetSort(model.SortNone)
	u.selectedActive = 0
	return nil
}

func (u *UI) selectCategory(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.ws.Controller.SetSelectedCategory(u.selectedCategoryEntry().ID)
	u.selectedActive = 0
	u.selectedCompleted = 0
	return nil
}

func (u *UI) toggleComplete(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task, ok := u.selectedTask()
	if !ok {
		return nil
	}
	_ = u.ws.Service.SetCompleted(u.ctx, task.ID, !task.Completed)
	return nil
}

func (u *UI) deleteSelected(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewCategories {
		entry := u.selectedCategoryEntry()
		if entry.ID != nil {
			_ = u.ws.Service.DeleteCategory(u.ctx, *entry.ID)
		}
		return nil
	}
	if task, ok := u.selectedTask(); ok {
		_ = u.ws.Service.DeleteTask(u.ctx, task.ID)
	}
	return nil
}

func (u *UI) deleteCompleted(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	_, _ = u.ws.Service.DeleteCompleted(u.ctx)
	return nil
}

func (u *UI) add(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewCategories {
		u.openPrompt("New Category", "", func(name string) {
			_, _ = u.ws.Service.CreateCategory(u.ctx, name, "")
		})
		return nil
	}
	u.openPrompt("New Task", "", func(title string) {
		_, _ = u.ws.Service.CreateTask(u.ctx, title)
	})
	return nil
}

func (u *UI) renameCategory(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	entry := u.selectedCategoryEntry()
	if entry.ID == nil {
		return nil
	}
	id := *entry.ID
	u.openPrompt("Rename Category", entry.Name, func(name string) {
		_ = u.ws.Service.RenameCategory(u.ctx, id, name, "")
	})
	return nil
}

func (u *UI) startFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.openPrompt("Filter by name", u.ws.Controller.State().NameFilter, func(text string) {
		u.ws.Controller.SetNameFilter(text)
	})
	return nil
}

func (u *UI) openPrompt(title, value string, submit func(string)) {
	u.prompt = &promptState{title: title, value: value, submit: submit}
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = u.prompt.title
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.promptEditor
	u.renderPrompt(view)
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) renderPrompt(view *gocui.View) {
	if u.prompt == nil || view == nil {
		return
	}
	view.Clear()
	fmt.Fprint(view, u.prompt.value)
	view.SetCursor(len([]rune(u.prompt.value)), 0)
}

func (e *promptEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.prompt == nil || view == nil {
		return false
	}
	ui.prompt.value = editText(ui.prompt.value, key, ch, mod)
	ui.renderPrompt(view)
	return true
}

func (u *UI) submitPrompt(gui *gocui.Gui, _ *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	u.applyPrompt(u.prompt.value)
	u.closeOverlay(gui, viewPrompt)
	return nil
}

func (u *UI) applyPrompt(value string) {
	prompt := u.prompt
	u.prompt = nil
	if prompt != nil {
		prompt.submit(value)
	}
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.prompt = nil
	u.closeOverlay(gui, viewPrompt)
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected, ok := u.selectedTask()
	if !ok {
		return nil
	}
	task, err := u.ws.Service.Task(u.ctx, selected.ID)
	if err != nil {
		u.ws.Reporter.Report(err, "Error loading task")
		return nil
	}
	fields := buildFormFields(task, u.ws.Catalog.Categories(), u.ws.Catalog.Priorities())
	u.form = &formState{taskID: task.ID, fields: fields}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(7, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = "Edit Task"
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

// submitForm keeps the form open when the update fails; the reason is shown as a toast.
func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if err := u.ws.Service.UpdateTask(u.ctx, u.form.taskID, parseFormFields(u.form.fields)); err != nil {
		return nil
	}
	u.form = nil
	u.closeOverlay(gui, viewForm)
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.closeOverlay(gui, viewForm)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, displayValue(field, index, u.ws.Catalog))
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label)) + len([]rune(displayValue(current, u.form.index, u.ws.Catalog))) + 4
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if len(field.Options) > 0 {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleOption(field.Options, field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleOption(field.Options, field.Value, -1)
		}
		ui.renderForm(view)
		return true
	}

	field.Value = editText(field.Value, key, ch, mod)
	ui.renderForm(view)
	return true
}

func editText(value string, key gocui.Key, ch rune, mod gocui.Modifier) string {
	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(value)
		if len(runes) > 0 {
			value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		value += " "
	case gocui.KeyCtrlU:
		value = ""
	}
	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		value += string(ch)
	}
	return value
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	u.closeOverlay(gui, viewHelp)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 18
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) closeOverlay(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
	_, _ = gui.SetCurrentView(u.focus)
}

func (u *UI) inputActive() bool {
	return u.prompt != nil || u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes | 1 Tasks | 2 Completed | 3 Categories",
		"  j/k or arrows move selection",
		"  [ and ] (or left/right in Tasks) change page | z cycle page size",
		"",
		"Tasks:",
		"  a add task | e/enter edit | x/space toggle done | d delete",
		"  D delete completed tasks of the selected category",
		"",
		"Filters:",
		"  / filter by name | s cycle due date sort | p cycle priority",
		"  enter/space select category (Categories pane) | g clear all",
		"",
		"Categories pane:",
		"  a add category | r rename | d delete with its tasks",
		"",
		"Other:",
		"  ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool) {
	view.Frame = true
	view.Highlight = focused
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
