// Package audio plays synthesized speech. A Transport drives one Stream
// at a time through a Device; OtoDevice decodes MP3 and WAV files and
// plays them with oto/v3.
package audio
