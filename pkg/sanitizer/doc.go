/*
Package sanitizer cleans text on its way into the timeline.

Response filters generated replies: it strips leading meta-commentary (greetings,
acknowledgments, refusals, "as an AI" disclosures, speaker labels) and cuts the
result to the render limit. An empty result is a soft failure.

Input guards operator text such as manual posts and free themes.
*/
package sanitizer
