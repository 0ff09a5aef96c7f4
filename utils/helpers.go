package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/nlopes/slack"
	"github.com/spf13/viper"
)

// update README link if moving this definition
var releaseRe = regexp.MustCompile(`^v([0-9]{1,3})\.([0-9]{1,3})\.([0-9]{1,3})$`)
var findSHA = regexp.MustCompile(`^[A-Fa-f0-9]{40}$`)

const stableTag = "stable"
const ciTagPrefix = "ci-"

// DeriveTag maps the branch that triggered a build to the tag its image
// should be published under. Builds off main are published as "stable",
// every other branch keeps its own name.
func DeriveTag(branch string) string {
	if branch == "main" {
		return stableTag
	}
	return branch
}

// IsReleaseMarker reports whether a derived tag identifies a
// production-facing build: exactly "stable", a ci-numbered tag, or a
// vX.Y.Z release version. Images with such tags get a second, aliased
// push so downstream consumers can pull them by marker.
func IsReleaseMarker(tag string) bool {
	if tag == stableTag {
		return true
	}
	if strings.HasPrefix(tag, ciTagPrefix) {
		return true
	}
	return IsTagReleaseFormat(tag)
}

func IsTagReleaseFormat(tag string) bool {
	return releaseRe.MatchString(tag)
}

func IsTagSHAFormat(tag string) bool {
	return findSHA.MatchString(tag)
}

func FilterReleaseTags(tags []string) []string {
	rtn := []string{}
	for _, tag := range tags {
		if IsTagReleaseFormat(tag) {
			rtn = append(rtn, tag)
		}
	}
	return rtn
}

func ConstructImageName(domain, prefix, repoName, tag string) string {
	return fmt.Sprintf("%s/%s/%s:%s",
		domain,
		prefix,
		repoName,
		tag,
	)
}

func CastMapOfMaps(mapOfMap interface{}) map[string]map[string]string {
	rtn := map[string]map[string]string{}
	for k1, nestedMap := range mapOfMap.(map[string]interface{}) {
		rtn[k1] = map[string]string{}
		for k2, v2 := range nestedMap.(map[string]interface{}) {
			rtn[k1][k2] = v2.(string)
		}
	}
	return rtn
}

func extractRegistryInfo(conf *viper.Viper, repoName, keyName string) string {
	repoMap := CastMapOfMaps(conf.Get("repo_map"))
	registryMap := CastMapOfMaps(conf.Get("registry_map"))
	registryName := repoMap[repoName]["registry_name"]
	repoRegistryMap := registryMap[registryName]
	return repoRegistryMap[keyName]
}

// return the scheme, domain, prefix and auth string in that order
func ExtractRegistryInfo(conf *viper.Viper, repoName string) (string, string, string, string) {
	registryScheme := extractRegistryInfo(conf, repoName, "registry_scheme")
	registryDomain := extractRegistryInfo(conf, repoName, "registry_domain")
	registryPrefix := extractRegistryInfo(conf, repoName, "registry_prefix")
	registryAuth := extractRegistryInfo(conf, repoName, "registry_auth")
	return registryScheme, registryDomain, registryPrefix, registryAuth
}

func DecodeAuthString(encoded string) (string, string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", fmt.Errorf("registry auth string not valid: %v", err)
	}
	decoded := string(data)
	arr := strings.SplitN(decoded, ":", 2)
	if len(arr) != 2 {
		return "", "", fmt.Errorf("registry auth string not valid: missing separator")
	}
	username := arr[0]
	password := arr[1]
	return username, password, nil
}

func EncodeAuthString(username, password string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%s:%s", username, password)))
}

const (
	green  = "#00FF00"
	red    = "#FF0000"
	orange = "#FFA500"
)

func PostSlackUpdate(conf *viper.Viper, text string) {
	attachment := slack.Attachment{
		Color: orange,
		Text:  text,
		Ts:    json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}
	postSlackMessage(conf, attachment)
}

func PostSlackError(conf *viper.Viper, text string) {
	attachment := slack.Attachment{
		Color: red,
		Text:  text,
		Ts:    json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}
	postSlackMessage(conf, attachment)
}

func PostSlackSuccess(conf *viper.Viper, text string) {
	attachment := slack.Attachment{
		Color: green,
		Text:  text,
		Ts:    json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}
	postSlackMessage(conf, attachment)
}

func postSlackMessage(conf *viper.Viper, attachment slack.Attachment) {
	webhookURL := conf.GetString("webhook_url")
	if webhookURL == "" {
		return
	}
	if _, ok := os.LookupEnv("DEBUG"); ok {
		return
	}
	msg := slack.WebhookMessage{
		Attachments: []slack.Attachment{attachment},
	}

	if err := slack.PostWebhook(webhookURL, &msg); err != nil {
		log.LogAppErr(fmt.Sprintf("Cannot post to slack webhook_url %s", webhookURL), err)
	}
}
