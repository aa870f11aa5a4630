package models

const ResultOk = "Ok"

// Record is one entry of a delivery-stream transformation batch. Data holds
// the base64 transport encoding exactly as received.
type Record struct {
	RecordID                    string `json:"recordId"`
	ApproximateArrivalTimestamp int64  `json:"approximateArrivalTimestamp,omitempty"`
	Data                        string `json:"data"`
}

type Acknowledgment struct {
	RecordID string `json:"recordId"`
	Result   string `json:"result"`
	Data     string `json:"data"`
}

type TransformationEvent struct {
	InvocationID      string   `json:"invocationId"`
	DeliveryStreamArn string   `json:"deliveryStreamArn"`
	Region            string   `json:"region"`
	Records           []Record `json:"records"`
}

type TransformationResponse struct {
	Records []Acknowledgment `json:"records"`
}
