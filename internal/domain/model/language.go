package model

// Language is a source language accepted by the execution service.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageNode       Language = "nodejs"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
)

var entryFileNames = map[Language]string{
	LanguagePython:     "main.py",
	LanguageC:          "main.c",
	LanguageCpp:        "main.cpp",
	LanguageNode:       "main.js",
	LanguageJavaScript: "main.js",
	LanguageJava:       "Main.java",
}

// EntryFileName is the file the submission is uploaded as. Java needs the
// file named after its public class.
func (l Language) EntryFileName() (string, bool) {
	name, ok := entryFileNames[l]
	return name, ok
}

func (l Language) Valid() bool {
	_, ok := entryFileNames[l]
	return ok
}
