package indexer

import "os"

var sharedLangDetector = NewLanguageDetector()

// readSourceFile reads the file at fullPath (as the scanner returns it)
// and detects its language. Files in an unknown
// language still get chunked; they are just not fed through scopegraph.
func readSourceFile(fullPath string) (content string, lang string, err error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", err
	}
	if l, ok := sharedLangDetector.Detect(fullPath); ok {
		lang = l.Name
	}
	return string(data), lang, nil
}
