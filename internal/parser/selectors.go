package parser

// Selectors of the player pages. The platform markup is stable but not
// ours, so everything page-shaped is collected here.
const (
	selIdentifyBtn = "#cvsBtn"
	selTimer       = "#testTimeLimit"
	selProfile     = "#user-profile"
	selDiscipline  = "h1.player-discipline"
	selServerError = "center.removeOnError"
	selLoginPopup  = "#popupUsername"

	selTestItem        = "span.player-questions"
	selTestCount       = "span.test-sub-question"
	selTestSkipped     = "span.skipped"
	selAssessForm      = "#player-assessments-form"
	selQuestionText    = "span.test-question-text-2"
	selMatchBottomPane = "#multipleMatchBottom"

	selSkipBtn   = "input.btNext"
	selSubmitBtn = "input[name=submit_send]"
	selFinishBtn = "input.doFinishBtn"

	selStatisticLink = "a#statistic"
	selResultRows    = "table.table-corpus tbody tr"
	selResultCells   = "td"

	selChoiceInputs     = "#player-assessments-form input[name=answers]"
	selChoiceMultInputs = "#player-assessments-form input[name='answers[]']"
	selTextEntryArea    = "textarea[id^=answers-]"

	selOrderItems = "#player-assessments-form li.answerVariant"

	selMatchLeftCells   = "#player-assessments-form div.matchQuestion"
	selMatchRightCells  = "#player-assessments-form div.matchAnswer"
	selMatchBottomItems = "#multipleMatchBottom li.ui-draggable"
	selMatchTopSlots    = "#multipleMatchTop li.matchSlot"

	selSequenceItems  = "#player-assessments-form li.sequence_answer_variant"
	selSequenceTarget = "#player-assessments-form ul.sequenceAnswers"
)

// inputByValue returns the selector of an answer control carrying the id.
func inputByValue(id string) string {
	return "#player-assessments-form input[value=" + quoteCSS(id) + "]"
}

func labelFor(id string) string {
	return "#player-assessments-form label[for=" + quoteCSS("answers-"+id) + "]"
}

func orderItemByID(id string) string {
	return "#player-assessments-form li[id=" + quoteCSS(id) + "]"
}

func matchCellByID(id string) string {
	return "#player-assessments-form div[id=" + quoteCSS(id) + "]"
}

func draggableByData(id string) string {
	return "#multipleMatchBottom li[data=" + quoteCSS(id) + "]"
}

func matchSlotByData(id string) string {
	return "#multipleMatchTop li[data=" + quoteCSS(id) + "]"
}

func sequenceItemByData(id string) string {
	return "#player-assessments-form li[data=" + quoteCSS(id) + "]"
}

// quoteCSS wraps an attribute value in quotes so ids with dashes or digits
// stay valid inside a selector.
func quoteCSS(v string) string { return `"` + v + `"` }
