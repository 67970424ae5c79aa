// Package classify labels candidate items with a content-type bucket, a
// content source, and a sensitivity flag.
//
// The rule table is data rather than code: an ordered list of marker sets
// evaluated first-match-wins against the normalized concatenation of a
// candidate's title, filename, body, category, and tags. A Spanish-tuned
// table ships embedded; deployments can substitute their own via YAML.
package classify
