package types

// EditType enumerates the natural-language edits the engine applies.
type EditType string

const (
	EditChangePace    EditType = "CHANGE_PACE"
	EditSwapActivity  EditType = "SWAP_ACTIVITY"
	EditSwapDays      EditType = "SWAP_DAYS"
	EditMoveTimeBlock EditType = "MOVE_TIME_BLOCK"
	EditAddActivity   EditType = "ADD_ACTIVITY"
	EditAddDay        EditType = "ADD_DAY"
	EditRemoveActiv   EditType = "REMOVE_ACTIVITY"
	EditReduceTravel  EditType = "REDUCE_TRAVEL"
)

// EditIntent is the parsed form of an edit command. It is ephemeral; it is
// never stored on the session.
type EditIntent struct {
	EditType          EditType `json:"edit_type"`
	TargetDay         int      `json:"target_day,omitempty"`
	SourceDay         int      `json:"source_day,omitempty"`
	TargetTimeBlock   string   `json:"target_time_block,omitempty"`
	SourceTimeBlock   string   `json:"source_time_block,omitempty"`
	TargetActivity    string   `json:"target_activity,omitempty"`
	NewPace           Pace     `json:"new_pace,omitempty"`
	NewActivityName   string   `json:"new_activity_name,omitempty"`
	PlaceName         string   `json:"place_name,omitempty"`
	RegenerateVacated bool     `json:"regenerate_vacated,omitempty"`
}
