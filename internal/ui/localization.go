package ui

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle           = "app_title"
	KeyGetFormats         = "get_formats"
	KeyEnterURL           = "enter_url"
	KeyPleaseEnterURL     = "please_enter_url"
	KeyInvalidURL         = "invalid_url"
	KeyRequestingFormats  = "requesting_formats"
	KeyFormatsFailed      = "formats_failed"
	KeyVideoFormats       = "video_formats"
	KeyAudioFormats       = "audio_formats"
	KeySelect             = "select"
	KeyStartingSession    = "starting_session"
	KeySelectionFailed    = "selection_failed"
	KeyProcessingOnServer = "processing_on_server"
	KeyPreparingDownload  = "preparing_download"
	KeyDownloadCompleted  = "download_completed"
	KeyDownloadFailed     = "download_failed"
	KeyDownloadAnother    = "download_another"
	KeyDuration           = "duration"
	KeyOpen               = "open"
	KeyReveal             = "reveal"
	KeyErrorOpeningFile   = "error_opening_file"
	KeySettings           = "settings"
	KeyFile               = "file"
	KeyLanguage           = "language"
	KeyDownloadDirectory  = "download_directory"
	KeyBackendAddress     = "backend_address"
	KeyAutoReveal         = "auto_reveal"
	KeySave               = "save"
	KeyCancel             = "cancel"
	KeyBrowse             = "browse"
	KeySettingsSaved      = "settings_saved"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		// Use system locale - simplified to English for now
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ru": "Русский",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	// English texts
	l.texts["en"] = map[string]string{
		KeyAppTitle:           "VidFetch",
		KeyGetFormats:         "Get formats",
		KeyEnterURL:           "Enter video link (https://...)",
		KeyPleaseEnterURL:     "Please enter a link",
		KeyInvalidURL:         "Invalid link",
		KeyRequestingFormats:  "Looking up available formats...",
		KeyFormatsFailed:      "Could not get formats",
		KeyVideoFormats:       "Video",
		KeyAudioFormats:       "Audio only",
		KeySelect:             "Download",
		KeyStartingSession:    "Starting download session...",
		KeySelectionFailed:    "Could not start download",
		KeyProcessingOnServer: "Processing on server...",
		KeyPreparingDownload:  "Preparing download link...",
		KeyDownloadCompleted:  "Download completed",
		KeyDownloadFailed:     "Download failed",
		KeyDownloadAnother:    "Download another video",
		KeyDuration:           "Duration",
		KeyOpen:               "Open",
		KeyReveal:             "Reveal",
		KeyErrorOpeningFile:   "Error opening file",
		KeySettings:           "Settings",
		KeyFile:               "File",
		KeyLanguage:           "Language",
		KeyDownloadDirectory:  "Download Directory",
		KeyBackendAddress:     "Backend",
		KeyAutoReveal:         "Reveal file when finished",
		KeySave:               "Save",
		KeyCancel:             "Cancel",
		KeyBrowse:             "Browse",
		KeySettingsSaved:      "Settings saved successfully!",
	}

	// Russian texts
	l.texts["ru"] = map[string]string{
		KeyAppTitle:           "VidFetch",
		KeyGetFormats:         "Получить форматы",
		KeyEnterURL:           "Введите ссылку на видео (https://...)",
		KeyPleaseEnterURL:     "Пожалуйста, введите ссылку",
		KeyInvalidURL:         "Неверная ссылка",
		KeyRequestingFormats:  "Поиск доступных форматов...",
		KeyFormatsFailed:      "Не удалось получить форматы",
		KeyVideoFormats:       "Видео",
		KeyAudioFormats:       "Только аудио",
		KeySelect:             "Скачать",
		KeyStartingSession:    "Запуск сессии загрузки...",
		KeySelectionFailed:    "Не удалось начать загрузку",
		KeyProcessingOnServer: "Обработка на сервере...",
		KeyPreparingDownload:  "Подготовка ссылки для скачивания...",
		KeyDownloadCompleted:  "Загрузка завершена",
		KeyDownloadFailed:     "Ошибка загрузки",
		KeyDownloadAnother:    "Скачать другое видео",
		KeyDuration:           "Длительность",
		KeyOpen:               "Открыть",
		KeyReveal:             "Показать",
		KeyErrorOpeningFile:   "Ошибка открытия файла",
		KeySettings:           "Настройки",
		KeyFile:               "Файл",
		KeyLanguage:           "Язык",
		KeyDownloadDirectory:  "Папка загрузки",
		KeyBackendAddress:     "Сервер",
		KeyAutoReveal:         "Показывать файл после завершения",
		KeySave:               "Сохранить",
		KeyCancel:             "Отмена",
		KeyBrowse:             "Обзор",
		KeySettingsSaved:      "Настройки успешно сохранены!",
	}
}
