package llm

import (
	"encoding/base64"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// PDFDataURL embeds document bytes as a base64 data URL.
func PDFDataURL(content []byte) string {
	return "data:" + constants.MimePDF + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DocumentParts returns the user-message parts for a document: the prompt,
// then the text when present, otherwise the embedded file.
func DocumentParts(prompt, fileName string, content []byte, text string) []ContentPart {
	parts := []ContentPart{{Type: PartText, Text: prompt}}
	if text != "" {
		return append(parts, ContentPart{Type: PartText, Text: BuildDocumentText(fileName, text)})
	}
	return append(parts, ContentPart{
		Type: PartFile,
		File: &FilePart{Filename: fileName, FileData: PDFDataURL(content)},
	})
}
