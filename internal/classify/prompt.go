package classify

import "fmt"

// visionPrompt asks the model to judge whether a photo shows a civic issue
// and to respond with a bare JSON object.
const visionPrompt = `Analyze this image and identify if it shows a civic issue. If it does, provide:
1. Category: Choose from [Road Damage, Street Light, Garbage, Water Leak, Traffic Signal, Pothole, Street Sign, Other]
2. Description: A brief description of the issue
3. Urgency: low, medium, or high based on safety and impact
4. Confidence: 0-100 score of how confident you are this is a civic issue

If this is not a civic issue, return category as "Not Applicable" and confidence as 0.

Respond in JSON format only:
{
  "category": "string",
  "description": "string",
  "urgency": "low|medium|high",
  "confidence": number
}`

// textPrompt asks the model to structure a citizen's free-form description.
func textPrompt(userText string) string {
	return fmt.Sprintf(`Analyze this civic issue description and provide:
1. Category: Choose from [Road Damage, Street Light, Garbage, Water Leak, Traffic Signal, Pothole, Street Sign, Other]
2. Description: A clear, detailed description of the issue
3. Urgency: low, medium, or high based on safety and impact

User description: %q

Respond in JSON format only:
{
  "category": "string",
  "description": "string",
  "urgency": "low|medium|high"
}`, userText)
}

// connectionTestPrompt is a trivial liveness probe; the expected
// acknowledgment is checked case-insensitively by TestConnection.
const (
	connectionTestPrompt   = `Say "API working" if you can read this.`
	connectionTestExpected = "api working"
)
