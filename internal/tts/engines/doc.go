// Package engines contains the text-to-speech backends: cloud engines
// (gTTS, OpenAI), offline neural engines (Piper, Coqui), rule-based
// engines (eSpeak NG, Festival) and the desktop OS engine.
// Each engine implements the Backend interface from the parent package.
package engines
