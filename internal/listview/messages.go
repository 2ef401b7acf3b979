package listview

// Message keys looked up through a Translator.
const (
	KeyLoading         = "loading.loading"
	KeyInfoTitle       = "message.infotitle"
	KeyGenerationError = "message.generationError"
	KeyLoadError       = "message.loadError"
	KeyOpenError       = "message.openError"
	KeyExportBusy      = "message.exportBusy"
)

// Translator resolves user-visible messages.
type Translator interface {
	Translate(key string) string
}

// Messages is a key to text table. Keys it lacks fall back to English, and
// unknown keys translate to themselves.
type Messages map[string]string

// English holds the default texts.
var English = Messages{
	KeyLoading:         "Loading...",
	KeyInfoTitle:       "Info",
	KeyGenerationError: "The file could not be generated.",
	KeyLoadError:       "Flights could not be loaded.",
	KeyOpenError:       "The file was saved but could not be opened:",
	KeyExportBusy:      "An export is already running.",
}

// Translate implements Translator.
func (m Messages) Translate(key string) string {
	if s, ok := m[key]; ok && s != "" {
		return s
	}
	if s, ok := English[key]; ok {
		return s
	}
	return key
}
