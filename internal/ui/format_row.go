package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/vidfetch/vidfetch/internal/model"
)

// File size formatting constants
const (
	FileSizeUnit  = 1024
	FileSizeUnits = "KMGTPE"
)

// formatFileSize formats file size in bytes to human readable format
func formatFileSize(bytes int64) string {
	if bytes < FileSizeUnit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(FileSizeUnit), 0
	for n := bytes / FileSizeUnit; n >= FileSizeUnit; n /= FileSizeUnit {
		div *= FileSizeUnit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), FileSizeUnits[exp])
}

// FormatRow is a compact row widget for one catalog entry: quality label,
// container type and a selection button.
type FormatRow struct {
	widget.BaseWidget

	option model.FormatOption
	index  int

	localization *Localization

	qualityLabel *widget.Label
	kindLabel    *widget.Label
	selectBtn    *widget.Button

	onSelect func(index int)
}

// NewFormatRow creates a row for one format option. index is the option's
// position in the catalog and is what gets sent back on selection.
func NewFormatRow(option model.FormatOption, index int, localization *Localization, onSelect func(index int)) *FormatRow {
	fr := &FormatRow{
		option:       option,
		index:        index,
		localization: localization,
		onSelect:     onSelect,
	}
	fr.ExtendBaseWidget(fr)
	fr.createUI()
	return fr
}

func (fr *FormatRow) createUI() {
	fr.qualityLabel = widget.NewLabel(fr.option.Label)
	fr.qualityLabel.TextStyle = fyne.TextStyle{Bold: true}

	fr.kindLabel = widget.NewLabel(fr.option.MimeType)
	fr.kindLabel.Truncation = fyne.TextTruncateEllipsis

	fr.selectBtn = widget.NewButton(fr.localization.GetText(KeySelect), func() {
		if fr.onSelect != nil {
			fr.onSelect(fr.index)
		}
	})
	fr.selectBtn.Importance = widget.HighImportance
}

// SetEnabled toggles the selection button, used while a session is running.
func (fr *FormatRow) SetEnabled(enabled bool) {
	if enabled {
		fr.selectBtn.Enable()
	} else {
		fr.selectBtn.Disable()
	}
}

// CreateRenderer creates the widget renderer
func (fr *FormatRow) CreateRenderer() fyne.WidgetRenderer {
	content := container.NewBorder(nil, nil, fr.qualityLabel, fr.selectBtn, fr.kindLabel)
	return widget.NewSimpleRenderer(content)
}

// MinSize returns the minimum row size
func (fr *FormatRow) MinSize() fyne.Size {
	min := fr.BaseWidget.MinSize()
	if min.Width < RowMinWidth {
		min.Width = RowMinWidth
	}
	if min.Height < RowMinHeight {
		min.Height = RowMinHeight
	}
	return min
}
