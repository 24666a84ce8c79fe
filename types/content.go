package types

import "go.mongodb.org/mongo-driver/bson"

// ContentKey is the fixed identifier of the homepage content singleton.
const ContentKey = "homepage"

// HomepageContent is the free-form homepage document (hero, services,
// logos, testimonials and so on).
type HomepageContent = bson.M

// Asset describes an uploaded homepage media object.
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
