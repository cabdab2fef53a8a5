// Package composer turns a persona, its policy, the theme and the recent timeline
// into generation instructions.
package composer
