package ui

import (
	"context"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/vidfetch/internal/config"
	"github.com/vidfetch/vidfetch/internal/model"
	"github.com/vidfetch/vidfetch/internal/platform"
	"github.com/vidfetch/vidfetch/internal/session"
)

// RootUI represents the main UI structure
type RootUI struct {
	window       fyne.Window
	orch         *session.Orchestrator
	settings     *config.Settings
	localization *Localization
	backendURL   string

	linkEntry *widget.Entry
	fetchBtn  *widget.Button

	// Notification panel
	notificationContainer *fyne.Container
	notificationLabel     *widget.Label
	notificationSpinner   *widget.ProgressBarInfinite

	// Video metadata panel
	thumbnail     *canvas.Image
	titleLabel    *widget.Label
	durationLabel *widget.Label
	metaPanel     *fyne.Container

	// Format catalog panel
	videoHeader  *widget.Label
	audioHeader  *widget.Label
	videoGroup   *fyne.Container
	audioGroup   *fyne.Container
	formatRows   []*FormatRow
	formatsPanel *fyne.Container

	// Progress panel
	progressBar     *widget.ProgressBar
	processingLabel *widget.Label
	progressPanel   *fyne.Container

	// Terminal result panel
	resultLabel *widget.Label
	resetBtn    *widget.Button
	resultPanel *fyne.Container

	// Render bookkeeping, touched on the UI thread only
	renderedLink  string
	thumbnailLink string
	toastShownFor string
}

// NewRootUI creates and initializes the main UI. backendURL is display-only.
func NewRootUI(window fyne.Window, app fyne.App, orch *session.Orchestrator, backendURL string) *RootUI {
	// Initialize settings
	settings := config.NewSettings(app)

	// Initialize localization
	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	// Ensure the downloads directory exists
	platform.CreateDirectoryIfNotExists(settings.GetDownloadDirectory())

	ui := &RootUI{
		window:       window,
		orch:         orch,
		settings:     settings,
		localization: localization,
		backendURL:   backendURL,
	}

	window.SetTitle(localization.GetText(KeyAppTitle))

	// Receive state snapshots from the orchestrator
	ui.orch.SetUpdateCallback(ui.onSnapshot)

	ui.setupUI()
	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	ui.createMenu()

	// Link entry row
	ui.linkEntry = widget.NewEntry()
	ui.linkEntry.SetPlaceHolder(ui.localization.GetText(KeyEnterURL))
	// Trigger the lookup when the user presses Enter in the link field
	ui.linkEntry.OnSubmitted = func(string) {
		ui.onFetchClick()
	}

	ui.fetchBtn = widget.NewButton(ui.localization.GetText(KeyGetFormats), ui.onFetchClick)

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	topPanel := container.NewBorder(nil, nil, container.NewHBox(settingsBtn), ui.fetchBtn, ui.linkEntry)

	// Notification panel under the link input (hidden by default)
	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Alignment = fyne.TextAlignLeading
	ui.notificationSpinner = widget.NewProgressBarInfinite()
	ui.notificationSpinner.Hide()
	ui.notificationContainer = container.NewHBox(ui.notificationSpinner, container.NewPadded(ui.notificationLabel))
	ui.notificationContainer.Hide()

	topCombined := container.NewVBox(topPanel, ui.notificationContainer)

	// Metadata panel
	ui.thumbnail = &canvas.Image{FillMode: canvas.ImageFillContain}
	ui.thumbnail.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))
	ui.titleLabel = widget.NewLabel("")
	ui.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	ui.titleLabel.Truncation = fyne.TextTruncateEllipsis
	ui.durationLabel = widget.NewLabel("")
	ui.metaPanel = container.NewBorder(nil, nil, ui.thumbnail, nil,
		container.NewVBox(ui.titleLabel, ui.durationLabel))
	ui.metaPanel.Hide()

	// Format catalog panel
	ui.videoHeader = widget.NewLabel(ui.localization.GetText(KeyVideoFormats))
	ui.videoHeader.TextStyle = fyne.TextStyle{Bold: true}
	ui.audioHeader = widget.NewLabel(ui.localization.GetText(KeyAudioFormats))
	ui.audioHeader.TextStyle = fyne.TextStyle{Bold: true}
	ui.videoGroup = container.NewVBox()
	ui.audioGroup = container.NewVBox()
	ui.formatsPanel = container.NewVBox(
		ui.videoHeader, ui.videoGroup,
		widget.NewSeparator(),
		ui.audioHeader, ui.audioGroup,
	)
	ui.formatsPanel.Hide()

	// Progress panel
	ui.progressBar = widget.NewProgressBar()
	ui.processingLabel = widget.NewLabel(ui.localization.GetText(KeyProcessingOnServer))
	ui.processingLabel.Hide()
	ui.progressPanel = container.NewVBox(ui.progressBar, ui.processingLabel)
	ui.progressPanel.Hide()

	// Terminal result panel
	ui.resultLabel = widget.NewLabel("")
	ui.resultLabel.Wrapping = fyne.TextWrapWord
	ui.resetBtn = widget.NewButton(ui.localization.GetText(KeyDownloadAnother), ui.onResetClick)
	ui.resultPanel = container.NewVBox(ui.resultLabel, ui.resetBtn)
	ui.resultPanel.Hide()

	center := container.NewVScroll(container.NewVBox(
		ui.metaPanel,
		ui.formatsPanel,
		ui.progressPanel,
		ui.resultPanel,
	))

	content := container.NewBorder(topCombined, nil, nil, nil, center)
	ui.window.SetContent(content)
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	// Language submenu
	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))

	availableLanguages := ui.localization.GetAvailableLanguages()
	for code, name := range availableLanguages {
		langCode := code // Capture for closure
		langItem := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})

		// Mark current language
		if ui.localization.GetCurrentLanguage() == code {
			langItem.Checked = true
		}

		languageMenu.Items = append(languageMenu.Items, langItem)
	}

	mainMenu := fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), settingsItem),
		languageMenu,
	)

	ui.window.SetMainMenu(mainMenu)
}

// onLanguageChange handles language change
func (ui *RootUI) onLanguageChange(langCode string) {
	ui.localization.SetLanguage(langCode)
	ui.settings.SetLanguage(langCode)

	ui.refreshUITexts()

	// Recreate menu to update checkmarks
	ui.createMenu()
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	ui.window.SetTitle(ui.localization.GetText(KeyAppTitle))

	ui.linkEntry.SetPlaceHolder(ui.localization.GetText(KeyEnterURL))
	ui.fetchBtn.SetText(ui.localization.GetText(KeyGetFormats))
	ui.videoHeader.SetText(ui.localization.GetText(KeyVideoFormats))
	ui.audioHeader.SetText(ui.localization.GetText(KeyAudioFormats))
	ui.processingLabel.SetText(ui.localization.GetText(KeyProcessingOnServer))
	ui.resetBtn.SetText(ui.localization.GetText(KeyDownloadAnother))
}

// onFetchClick handles the format lookup button click
func (ui *RootUI) onFetchClick() {
	linkText := strings.TrimSpace(ui.linkEntry.Text)
	if linkText == "" {
		ui.showNotification(ui.localization.GetText(KeyPleaseEnterURL), false)
		return
	}

	if err := model.ValidateLink(linkText); err != nil {
		ui.showNotification(ui.localization.GetText(KeyInvalidURL)+": "+err.Error(), false)
		return
	}

	ui.showNotification(ui.localization.GetText(KeyRequestingFormats), true)

	go func() {
		if err := ui.orch.SubmitLink(context.Background(), linkText); err != nil {
			log.Warn().Str("link", linkText).Err(err).Msg("link submission failed")
			ui.showNotification(ui.localization.GetText(KeyFormatsFailed)+": "+err.Error(), false)
		}
	}()
}

// onSelectFormat handles a format row selection
func (ui *RootUI) onSelectFormat(index int) {
	go func() {
		if err := ui.orch.ChooseFormat(context.Background(), index); err != nil {
			log.Warn().Int("format_index", index).Err(err).Msg("format selection failed")
			ui.showNotification(ui.localization.GetText(KeySelectionFailed)+": "+err.Error(), false)
		}
	}()
}

// onResetClick abandons the current session and returns to an empty form
func (ui *RootUI) onResetClick() {
	ui.orch.Reset()
}

// showNotification displays a message in the notification panel under the link
// input. When spinning is true, a spinner is shown to indicate background activity.
func (ui *RootUI) showNotification(message string, spinning bool) {
	fyne.Do(func() {
		ui.notificationLabel.SetText(message)
		if spinning {
			ui.notificationSpinner.Show()
		} else {
			ui.notificationSpinner.Hide()
		}
		ui.notificationContainer.Show()
		ui.notificationContainer.Refresh()
	})
}

// hideNotification hides the notification panel.
func (ui *RootUI) hideNotification() {
	ui.notificationSpinner.Hide()
	ui.notificationContainer.Hide()
}

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.backendURL, ui.window).Show()
}

// onSnapshot handles state snapshots from the orchestrator. It may be called
// from any goroutine, so all rendering is funneled onto the UI thread.
func (ui *RootUI) onSnapshot(snap session.Snapshot) {
	fyne.Do(func() {
		ui.render(snap)
	})
}

// render updates the visible panels to match one state snapshot.
func (ui *RootUI) render(snap session.Snapshot) {
	switch snap.Phase {
	case model.PhaseIdle:
		ui.renderedLink = ""
		ui.toastShownFor = ""
		ui.linkEntry.SetText("")
		ui.metaPanel.Hide()
		ui.formatsPanel.Hide()
		ui.progressPanel.Hide()
		ui.resultPanel.Hide()
		ui.hideNotification()

	case model.PhaseLinkSubmitted:
		ui.renderCatalog(snap.Catalog)
		ui.setRowsEnabled(true)
		ui.progressPanel.Hide()
		ui.resultPanel.Hide()
		ui.hideNotification()

	case model.PhaseFormatChosen:
		ui.renderCatalog(snap.Catalog)
		ui.setRowsEnabled(false)
		ui.progressPanel.Hide()
		ui.resultPanel.Hide()
		ui.showNotification(ui.localization.GetText(KeyStartingSession), true)

	case model.PhaseProcessing:
		ui.renderCatalog(snap.Catalog)
		ui.setRowsEnabled(false)
		if preparingLink(snap) {
			ui.showNotification(ui.localization.GetText(KeyPreparingDownload), true)
		} else {
			ui.hideNotification()
		}
		ui.progressPanel.Show()
		if snap.Progress >= 0 {
			ui.progressBar.SetValue(float64(snap.Progress) / 100)
		}
		if snap.ProcessingKnown && snap.Processing {
			ui.processingLabel.Show()
		} else {
			ui.processingLabel.Hide()
		}

	case model.PhaseTerminal:
		ui.renderCatalog(snap.Catalog)
		ui.setRowsEnabled(true)
		ui.processingLabel.Hide()
		ui.renderTerminal(snap)
	}

	ui.window.Canvas().Refresh(ui.window.Content())
}

// renderTerminal shows the outcome of a finished session.
func (ui *RootUI) renderTerminal(snap session.Snapshot) {
	if snap.Outcome != nil && snap.Outcome.Failed() {
		message := snap.Outcome.ErrorMessage
		if message == "" {
			message = ui.localization.GetText(KeyDownloadFailed)
		}
		ui.hideNotification()
		ui.progressPanel.Hide()
		ui.resultLabel.SetText(IconError + " " + message)
		ui.resultPanel.Show()
		return
	}

	ui.progressBar.SetValue(1)
	ui.progressPanel.Show()

	switch {
	case snap.DownloadErr != "":
		ui.hideNotification()
		ui.resultLabel.SetText(IconError + " " + ui.localization.GetText(KeyDownloadFailed) + ": " + snap.DownloadErr)
		ui.resultPanel.Show()
	case snap.DownloadPath != "":
		ui.hideNotification()
		ui.resultLabel.SetText(ui.localization.GetText(KeyDownloadCompleted) + MiddleDotSeparator + snap.DownloadPath)
		ui.resultPanel.Show()
		ui.notifyDownloadComplete(snap)
	default:
		// Artifact is ready but the local fetch is still running
		ui.resultPanel.Hide()
		ui.showNotification(ui.localization.GetText(KeyPreparingDownload), true)
	}
}

// preparingLink reports whether the session is past conversion but the saved
// file is not there yet: progress hit 100 with no terminal event, or the
// terminal artifact arrived and the local fetch is still running.
func preparingLink(snap session.Snapshot) bool {
	switch snap.Phase {
	case model.PhaseProcessing:
		return snap.Progress >= 100
	case model.PhaseTerminal:
		return snap.Outcome != nil && !snap.Outcome.Failed() &&
			snap.DownloadPath == "" && snap.DownloadErr == ""
	}
	return false
}

// renderCatalog populates the metadata and format panels. Rebuilding only
// happens when the catalog actually changed.
func (ui *RootUI) renderCatalog(catalog *model.FormatCatalog) {
	if catalog == nil {
		ui.metaPanel.Hide()
		ui.formatsPanel.Hide()
		return
	}
	if ui.renderedLink == catalog.Link {
		ui.metaPanel.Show()
		ui.formatsPanel.Show()
		return
	}
	ui.renderedLink = catalog.Link
	ui.toastShownFor = ""

	ui.titleLabel.SetText(catalog.Meta.Title)
	ui.durationLabel.SetText(ui.localization.GetText(KeyDuration) + ": " + catalog.Meta.DurationString())
	ui.loadThumbnail(catalog.Meta.ThumbnailURL)

	ui.videoGroup.RemoveAll()
	ui.audioGroup.RemoveAll()
	ui.formatRows = nil

	for i, option := range catalog.Formats {
		row := NewFormatRow(option, i, ui.localization, ui.onSelectFormat)
		ui.formatRows = append(ui.formatRows, row)
		if option.IsCombined() {
			ui.videoGroup.Add(row)
		} else {
			ui.audioGroup.Add(row)
		}
	}

	if len(ui.audioGroup.Objects) == 0 {
		ui.audioHeader.Hide()
	} else {
		ui.audioHeader.Show()
	}

	ui.metaPanel.Show()
	ui.formatsPanel.Show()
}

// setRowsEnabled toggles all format selection buttons at once.
func (ui *RootUI) setRowsEnabled(enabled bool) {
	for _, row := range ui.formatRows {
		row.SetEnabled(enabled)
	}
}

// loadThumbnail fetches the preview image in the background.
func (ui *RootUI) loadThumbnail(thumbURL string) {
	if thumbURL == "" {
		ui.thumbnail.Resource = nil
		ui.thumbnail.Refresh()
		return
	}
	if ui.thumbnailLink == thumbURL {
		return
	}
	ui.thumbnailLink = thumbURL
	ui.thumbnail.Resource = nil
	ui.thumbnail.Refresh()

	go func() {
		resource, err := fyne.LoadResourceFromURLString(thumbURL)
		if err != nil {
			log.Debug().Str("url", thumbURL).Err(err).Msg("thumbnail load failed")
			return
		}
		fyne.Do(func() {
			if ui.thumbnailLink != thumbURL {
				return
			}
			ui.thumbnail.Resource = resource
			ui.thumbnail.Refresh()
		})
	}()
}

// notifyDownloadComplete sends a system notification plus an in-app toast for
// a finished download. Fires once per saved file.
func (ui *RootUI) notifyDownloadComplete(snap session.Snapshot) {
	if ui.toastShownFor == snap.DownloadPath {
		return
	}
	ui.toastShownFor = snap.DownloadPath

	title := ui.localization.GetText(KeyDownloadCompleted)
	message := snap.DownloadPath
	if snap.DownloadSize > 0 {
		message += MiddleDotSeparator + formatFileSize(snap.DownloadSize)
	}

	fyne.CurrentApp().SendNotification(&fyne.Notification{
		Title:   title,
		Content: message,
	})

	ui.showToastNotification(snap.DownloadPath, message)

	if ui.settings.GetAutoRevealOnComplete() {
		ui.onRevealFile(snap.DownloadPath)
	}
}

// showToastNotification shows an in-app toast notification with action buttons
func (ui *RootUI) showToastNotification(filePath, message string) {
	titleLabel := widget.NewLabel(ui.localization.GetText(KeyDownloadCompleted))
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	messageLabel := widget.NewLabel(message)
	messageLabel.Truncation = fyne.TextTruncateEllipsis

	revealBtn := widget.NewButton(ui.localization.GetText(KeyReveal), func() {
		ui.onRevealFile(filePath)
	})
	revealBtn.Importance = widget.HighImportance

	openBtn := widget.NewButton(ui.localization.GetText(KeyOpen), func() {
		ui.onOpenFile(filePath)
	})
	openBtn.Importance = widget.MediumImportance

	var toastPopup *widget.PopUp
	closeBtn := widget.NewButton(IconClose, func() {
		if toastPopup != nil {
			toastPopup.Hide()
		}
	})
	closeBtn.Importance = widget.LowImportance

	header := container.NewBorder(nil, nil, titleLabel, closeBtn)
	actions := container.NewHBox(revealBtn, openBtn)
	content := container.NewVBox(
		header,
		messageLabel,
		actions,
	)

	toastPopup = widget.NewPopUp(content, ui.window.Canvas())

	// Position in top-right corner
	canvasSize := ui.window.Canvas().Size()
	toastSize := fyne.NewSize(ToastWidth, ToastHeight)
	toastPos := fyne.NewPos(canvasSize.Width-toastSize.Width-ToastMargin, ToastMargin)

	toastPopup.Resize(toastSize)
	toastPopup.Move(toastPos)
	toastPopup.Show()

	// Auto-hide after configured time
	go func() {
		time.Sleep(ToastAutoHide)
		fyne.Do(func() {
			if toastPopup != nil {
				toastPopup.Hide()
			}
		})
	}()
}

// onRevealFile reveals a saved file in the system file manager
func (ui *RootUI) onRevealFile(filePath string) {
	if filePath == "" {
		return
	}

	if err := platform.OpenFileInManager(filePath); err != nil {
		log.Warn().Str("path", filePath).Err(err).Msg("reveal failed")
		widget.ShowPopUp(widget.NewLabel(ui.localization.GetText(KeyErrorOpeningFile)+": "+err.Error()), ui.window.Canvas())
	}
}

// onOpenFile opens a saved file with the default application
func (ui *RootUI) onOpenFile(filePath string) {
	if filePath == "" {
		return
	}

	if err := platform.OpenFileWithDefaultApp(filePath); err != nil {
		log.Warn().Str("path", filePath).Err(err).Msg("open failed")
		widget.ShowPopUp(widget.NewLabel(ui.localization.GetText(KeyErrorOpeningFile)+": "+err.Error()), ui.window.Canvas())
	}
}
